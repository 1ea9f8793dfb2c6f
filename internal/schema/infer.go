package schema

import (
	"log/slog"
	"slices"

	"github.com/JonMunkholm/docmigrate/internal/convert"
	"go.mongodb.org/mongo-driver/bson"
)

// observation tallies the storage classes seen for one field.
type observation struct {
	counts [convert.Null + 1]int
	// seen lists classes in the order they were first encountered.
	seen []convert.StorageClass
}

func (o *observation) add(c convert.StorageClass) {
	if o.counts[c] == 0 {
		o.seen = append(o.seen, c)
	}
	o.counts[c]++
}

// winner picks the most frequent class. Ties go to the class declared
// first (INTEGER over REAL over TEXT over BLOB over NULL). A NULL winner
// is replaced by the first non-NULL class seen, if any.
func (o *observation) winner() convert.StorageClass {
	best := convert.Null
	bestCount := -1
	for c := convert.Integer; c <= convert.Null; c++ {
		if o.counts[c] > bestCount {
			best, bestCount = c, o.counts[c]
		}
	}

	if best == convert.Null {
		for _, c := range o.seen {
			if c != convert.Null {
				return c
			}
		}
	}
	return best
}

// Infer derives a table schema from a sample of documents.
//
// The _id column always comes first as a non-null TEXT primary key. Every
// other field seen in the sample becomes a nullable column, ordered by
// name. Documents that cannot be parsed are skipped; Infer never fails.
func Infer(collection string, sample []bson.Raw) *Schema {
	fields := make(map[string]*observation)

	for i, doc := range sample {
		elems, err := doc.Elements()
		if err != nil {
			slog.Warn("skipping malformed sample document",
				"collection", collection,
				"index", i,
				"error", err,
			)
			continue
		}
		for _, elem := range elems {
			key := elem.Key()
			obs, ok := fields[key]
			if !ok {
				obs = &observation{}
				fields[key] = obs
			}
			obs.add(convert.Classify(elem.Value()))
		}
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		if name != IDField {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	columns := make([]Column, 0, len(names)+1)
	columns = append(columns, Column{
		Name:       IDField,
		Class:      convert.Text,
		Nullable:   false,
		PrimaryKey: true,
	})
	for _, name := range names {
		columns = append(columns, Column{
			Name:     name,
			Class:    fields[name].winner(),
			Nullable: true,
		})
	}

	return &Schema{Collection: collection, Columns: columns}
}

package mongostore

import (
	"time"

	"github.com/matzehuels/factoryflow/pkg/flow"
)

// record is the stored form of a [flow.Document].
type record struct {
	FactoryID   string         `bson:"factoryId"`
	FactoryData flow.WireGraph `bson:"factoryData"`
	CreatedAt   time.Time      `bson:"createdAt,omitempty"`
	UpdatedAt   time.Time      `bson:"updatedAt"`
}

func newRecord(doc flow.Document, now time.Time) record {
	return record{
		FactoryID:   doc.FactoryID,
		FactoryData: doc.FactoryData.Wire(),
		UpdatedAt:   now,
	}
}

func (r record) document() (flow.Document, error) {
	g, err := flow.GraphFromWire(r.FactoryData)
	if err != nil {
		return flow.Document{}, err
	}
	return flow.Document{FactoryID: r.FactoryID, FactoryData: g}, nil
}

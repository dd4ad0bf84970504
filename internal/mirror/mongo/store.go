// Package mongo mirrors sales into a MongoDB collection, one document
// per (owner, sale id).
package mongo

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"teatracker/m/domain"
	"teatracker/m/internal/mirror"
)

var _ mirror.Mirror = (*Store)(nil)

// CollectionName is the collection sales are written to.
const CollectionName = "sales"

type saleDocument struct {
	OwnerID     string          `bson:"owner_id"`
	SaleID      int64           `bson:"sale_id"`
	Date        string          `bson:"date"`
	Name        string          `bson:"name"`
	Phone       string          `bson:"phone"`
	Business    string          `bson:"business"`
	Address     string          `bson:"address"`
	Kgs         bson.Decimal128 `bson:"kgs"`
	Price       bson.Decimal128 `bson:"price"`
	Total       bson.Decimal128 `bson:"total"`
	PaymentType string          `bson:"payment_type"`
	Cash        bson.Decimal128 `bson:"cash"`
	Online      bson.Decimal128 `bson:"online"`
	PaidAmount  bson.Decimal128 `bson:"paid_amount"`
	Remaining   bson.Decimal128 `bson:"remaining"`
	CreatedAt   int64           `bson:"created_at"`
}

// DocumentID is the _id of a mirrored sale.
func DocumentID(owner string, saleID int64) string {
	return owner + ":" + strconv.FormatInt(saleID, 10)
}

func toDecimal128(d decimal.Decimal) (bson.Decimal128, error) {
	return bson.ParseDecimal128(d.String())
}

func toDocument(owner string, s *domain.Sale) (*saleDocument, error) {
	doc := &saleDocument{
		OwnerID:     owner,
		SaleID:      s.ID,
		Date:        s.Date,
		Name:        s.Name,
		Phone:       s.Phone,
		Business:    s.Business,
		Address:     s.Address,
		PaymentType: string(s.PaymentType),
		CreatedAt:   s.CreatedAt,
	}
	amounts := []struct {
		dst *bson.Decimal128
		src decimal.Decimal
	}{
		{&doc.Kgs, s.Kgs},
		{&doc.Price, s.Price},
		{&doc.Total, s.Total},
		{&doc.Cash, s.Cash},
		{&doc.Online, s.Online},
		{&doc.PaidAmount, s.PaidAmount},
		{&doc.Remaining, s.Remaining},
	}
	for _, a := range amounts {
		v, err := toDecimal128(a.src)
		if err != nil {
			return nil, err
		}
		*a.dst = v
	}
	return doc, nil
}

// Store writes sales to MongoDB.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// Open connects to uri and uses the sales collection of database.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mirror/mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mirror/mongo: ping: %w", err)
	}
	return &Store{client: client, coll: client.Database(database).Collection(CollectionName)}, nil
}

func (s *Store) UpsertSale(ctx context.Context, owner string, sale *domain.Sale) error {
	doc, err := toDocument(owner, sale)
	if err != nil {
		return fmt.Errorf("mirror/mongo: encode sale %d: %w", sale.ID, err)
	}
	_, err = s.coll.UpdateOne(ctx,
		bson.M{"_id": DocumentID(owner, sale.ID)},
		bson.M{"$set": doc},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mirror/mongo: upsert sale %d: %w", sale.ID, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

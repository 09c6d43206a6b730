package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// InvoiceIndexes returns the indexes the invoice collection relies on.
// The unique invoiceNumber index is what turns allocation races into duplicate key errors.
func InvoiceIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "invoiceNumber", Value: 1}},
			Options: options.Index().SetName("uniq_invoice_number").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("idx_status_created_at"),
		},
		{
			Keys:    bson.D{{Key: "clientName", Value: 1}},
			Options: options.Index().SetName("idx_client_name"),
		},
		{
			Keys:    bson.D{{Key: "clientEmail", Value: 1}},
			Options: options.Index().SetName("idx_client_email"),
		},
	}
}

// EnsureIndexes creates missing invoice indexes and returns their names
func EnsureIndexes(ctx context.Context, db *mongo.Database, collection string) ([]string, error) {
	if collection == "" {
		collection = DefaultInvoiceCollection
	}
	return db.Collection(collection).Indexes().CreateMany(ctx, InvoiceIndexes())
}

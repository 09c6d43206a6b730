package mongo

import (
	"context"
	"errors"
	"regexp"

	"github.com/flexprice/invoicing/internal/domain/invoice"
	ierr "github.com/flexprice/invoicing/internal/errors"
	"github.com/flexprice/invoicing/internal/logger"
	"github.com/flexprice/invoicing/internal/money"
	"github.com/flexprice/invoicing/internal/sentry"
	"github.com/flexprice/invoicing/internal/types"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	storeName                = "mongo"
	DefaultInvoiceCollection = "invoices"
)

type invoiceRepository struct {
	col    *mongo.Collection
	logger *logger.Logger
}

// NewInvoiceRepository stores invoices in collection of db
func NewInvoiceRepository(db *mongo.Database, collection string, logger *logger.Logger) invoice.Repository {
	if collection == "" {
		collection = DefaultInvoiceCollection
	}
	return &invoiceRepository{
		col:    db.Collection(collection),
		logger: logger,
	}
}

func (r *invoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	span := sentry.StartRepositorySpan(ctx, storeName, "invoice", "create", map[string]interface{}{
		"invoice_number": inv.InvoiceNumber,
	})
	defer sentry.FinishSpan(span)

	doc, err := toDocument(inv)
	if err != nil {
		return ierr.WithError(err).WithHint("Invoice amounts could not be encoded").Mark(ierr.ErrSystem)
	}

	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return invoice.NewDuplicateKeyError(inv.InvoiceNumber, err)
		}
		return ierr.WithError(err).WithHint("Failed to create invoice").Mark(ierr.ErrDatabase)
	}

	r.logger.Debugw("created invoice", "id", inv.ID, "invoice_number", inv.InvoiceNumber)
	return nil
}

func (r *invoiceRepository) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	span := sentry.StartRepositorySpan(ctx, storeName, "invoice", "get", map[string]interface{}{
		"invoice_id": id,
	})
	defer sentry.FinishSpan(span)

	var doc invoiceDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, invoice.NewNotFoundError(id)
		}
		return nil, ierr.WithError(err).WithHint("Failed to get invoice").Mark(ierr.ErrDatabase)
	}

	return decode(&doc)
}

func (r *invoiceRepository) Update(ctx context.Context, inv *invoice.Invoice) error {
	span := sentry.StartRepositorySpan(ctx, storeName, "invoice", "update", map[string]interface{}{
		"invoice_id": inv.ID,
	})
	defer sentry.FinishSpan(span)

	doc, err := toDocument(inv)
	if err != nil {
		return ierr.WithError(err).WithHint("Invoice amounts could not be encoded").Mark(ierr.ErrSystem)
	}
	doc.Version = inv.Version + 1

	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": inv.ID, "version": inv.Version}, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return invoice.NewDuplicateKeyError(inv.InvoiceNumber, err)
		}
		return ierr.WithError(err).WithHint("Failed to update invoice").Mark(ierr.ErrDatabase)
	}

	if res.MatchedCount == 0 {
		n, err := r.col.CountDocuments(ctx, bson.M{"_id": inv.ID})
		if err != nil {
			return ierr.WithError(err).WithHint("Failed to update invoice").Mark(ierr.ErrDatabase)
		}
		if n == 0 {
			return invoice.NewNotFoundError(inv.ID)
		}
		return ierr.NewErrorf("invoice %s version %d is stale", inv.ID, inv.Version).
			WithHint("The invoice was modified concurrently, please reload it").
			Mark(ierr.ErrVersionConflict)
	}

	inv.Version = doc.Version
	return nil
}

func (r *invoiceRepository) Delete(ctx context.Context, id string) error {
	span := sentry.StartRepositorySpan(ctx, storeName, "invoice", "delete", map[string]interface{}{
		"invoice_id": id,
	})
	defer sentry.FinishSpan(span)

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return ierr.WithError(err).WithHint("Failed to delete invoice").Mark(ierr.ErrDatabase)
	}
	if res.DeletedCount == 0 {
		return invoice.NewNotFoundError(id)
	}
	return nil
}

func (r *invoiceRepository) List(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.Invoice, error) {
	span := sentry.StartRepositorySpan(ctx, storeName, "invoice", "list", nil)
	defer sentry.FinishSpan(span)

	if filter == nil {
		filter = types.NewDefaultInvoiceFilter()
	}

	dir := -1
	if filter.GetOrder() == types.OrderAsc {
		dir = 1
	}

	opts := options.Find().
		SetSort(bson.D{{Key: filter.GetSortBy(), Value: dir}, {Key: "_id", Value: dir}}).
		SetSkip(int64(filter.GetOffset())).
		SetLimit(int64(filter.GetLimit()))

	cursor, err := r.col.Find(ctx, buildFilter(filter), opts)
	if err != nil {
		return nil, ierr.WithError(err).WithHint("Failed to list invoices").Mark(ierr.ErrDatabase)
	}

	var docs []invoiceDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, ierr.WithError(err).WithHint("Failed to list invoices").Mark(ierr.ErrDatabase)
	}

	invoices := make([]*invoice.Invoice, 0, len(docs))
	for i := range docs {
		inv, err := decode(&docs[i])
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, nil
}

func (r *invoiceRepository) Count(ctx context.Context, filter *types.InvoiceFilter) (int, error) {
	span := sentry.StartRepositorySpan(ctx, storeName, "invoice", "count", nil)
	defer sentry.FinishSpan(span)

	if filter == nil {
		filter = &types.InvoiceFilter{}
	}

	n, err := r.col.CountDocuments(ctx, buildFilter(filter))
	if err != nil {
		return 0, ierr.WithError(err).WithHint("Failed to count invoices").Mark(ierr.ErrDatabase)
	}
	return int(n), nil
}

func (r *invoiceRepository) FindMaxInvoiceNumberWithPrefix(ctx context.Context, prefix string) (*string, error) {
	span := sentry.StartRepositorySpan(ctx, storeName, "invoice", "find_max_number", map[string]interface{}{
		"prefix": prefix,
	})
	defer sentry.FinishSpan(span)

	// an anchored prefix regex can use the unique index on invoiceNumber
	filter := bson.M{"invoiceNumber": bson.M{"$regex": "^" + regexp.QuoteMeta(prefix)}}
	opts := options.FindOne().
		SetSort(bson.D{{Key: "invoiceNumber", Value: -1}}).
		SetProjection(bson.M{"invoiceNumber": 1})

	var doc struct {
		InvoiceNumber string `bson:"invoiceNumber"`
	}
	if err := r.col.FindOne(ctx, filter, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, ierr.WithError(err).WithHint("Failed to read invoice numbers").Mark(ierr.ErrDatabase)
	}
	return &doc.InvoiceNumber, nil
}

func (r *invoiceRepository) SumTotal(ctx context.Context, status types.InvoiceStatus) (money.Money, error) {
	span := sentry.StartRepositorySpan(ctx, storeName, "invoice", "sum_total", map[string]interface{}{
		"status": status,
	})
	defer sentry.FinishSpan(span)

	pipeline := bson.A{
		bson.M{"$match": bson.M{"status": string(status)}},
		bson.M{"$group": bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$total"},
		}},
	}

	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return money.Zero, ierr.WithError(err).WithHint("Failed to compute revenue").Mark(ierr.ErrDatabase)
	}

	var rows []struct {
		Total bson.Decimal128 `bson:"total"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return money.Zero, ierr.WithError(err).WithHint("Failed to compute revenue").Mark(ierr.ErrDatabase)
	}
	if len(rows) == 0 {
		return money.Zero, nil
	}

	total, err := money.FromInput(rows[0].Total.String())
	if err != nil {
		return money.Zero, ierr.WithError(err).WithHint("Stored revenue is not a decimal").Mark(ierr.ErrSystem)
	}
	return total, nil
}

// buildFilter translates list parameters into a query document
func buildFilter(filter *types.InvoiceFilter) bson.M {
	query := bson.M{}

	if status := filter.GetStatus(); status != nil {
		query["status"] = string(*status)
	}

	if filter.Search != "" {
		pattern := bson.M{"$regex": regexp.QuoteMeta(filter.Search), "$options": "i"}
		query["$or"] = bson.A{
			bson.M{"clientName": pattern},
			bson.M{"clientEmail": pattern},
			bson.M{"invoiceNumber": pattern},
		}
	}

	return query
}

func decode(doc *invoiceDocument) (*invoice.Invoice, error) {
	inv, err := doc.toDomain()
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Invoice %s has malformed amounts", doc.ID).
			Mark(ierr.ErrSystem)
	}
	return inv, nil
}

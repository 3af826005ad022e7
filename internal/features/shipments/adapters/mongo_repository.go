package adapters

import (
	"context"
	"errors"
	"fmt"

	"parcel-tracker/internal/features/shipments/domain"
	"parcel-tracker/internal/features/shipments/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// newestFirst sorts by creation time, descending.
var newestFirst = bson.D{{Key: "createdAt", Value: -1}}

// MongoShipmentRepository implements ports.ShipmentRepository on a MongoDB collection.
type MongoShipmentRepository struct {
	collection *mongo.Collection
}

// NewMongoShipmentRepository creates a repository bound to the given
// collection and ensures the unique tracking code index exists.
func NewMongoShipmentRepository(ctx context.Context, collection *mongo.Collection) (*MongoShipmentRepository, error) {
	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "trackingCode", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure tracking code index: %w", err)
	}

	return &MongoShipmentRepository{collection: collection}, nil
}

// Insert stores a new shipment, assigning an id when missing.
func (r *MongoShipmentRepository) Insert(ctx context.Context, shipment *domain.Shipment) error {
	if shipment.ID == "" {
		shipment.ID = primitive.NewObjectID().Hex()
	}

	if _, err := r.collection.InsertOne(ctx, shipment); err != nil {
		return fmt.Errorf("failed to insert shipment: %w", err)
	}
	return nil
}

// FindByCode returns the shipment with the given tracking code.
func (r *MongoShipmentRepository) FindByCode(ctx context.Context, code string) (*domain.Shipment, error) {
	return r.findOne(ctx, bson.M{"trackingCode": code})
}

// FindByID returns the shipment with the given internal id.
func (r *MongoShipmentRepository) FindByID(ctx context.Context, id string) (*domain.Shipment, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoShipmentRepository) findOne(ctx context.Context, filter bson.M) (*domain.Shipment, error) {
	var shipment domain.Shipment
	err := r.collection.FindOne(ctx, filter).Decode(&shipment)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrShipmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find shipment: %w", err)
	}
	return &shipment, nil
}

// AppendStatus atomically appends one history entry, sets the current status
// and optionally the GPS position.
func (r *MongoShipmentRepository) AppendStatus(ctx context.Context, code string, entry domain.StatusEntry, gps *domain.Position) (*domain.Shipment, error) {
	set := bson.M{
		"status":    entry.Status,
		"updatedAt": entry.Date,
	}
	if gps != nil {
		set["gpsPosition"] = gps
	}

	update := bson.M{
		"$set":  set,
		"$push": bson.M{"history": entry},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var shipment domain.Shipment
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"trackingCode": code}, update, opts).Decode(&shipment)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrShipmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to append status: %w", err)
	}
	return &shipment, nil
}

// Update replaces the mutable fields of an existing shipment. The tracking
// code, history, owner and courier assignment are not touched here.
func (r *MongoShipmentRepository) Update(ctx context.Context, shipment *domain.Shipment) error {
	update := bson.M{"$set": bson.M{
		"senderName":       shipment.SenderName,
		"recipientName":    shipment.RecipientName,
		"recipientAddress": shipment.RecipientAddress,
		"recipientEmail":   shipment.RecipientEmail,
		"recipientPhone":   shipment.RecipientPhone,
		"gpsPosition":      shipment.GPS,
		"clientId":         shipment.ClientID,
		"updatedAt":        shipment.UpdatedAt,
	}}

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": shipment.ID}, update)
	if err != nil {
		return fmt.Errorf("failed to update shipment: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrShipmentNotFound
	}
	return nil
}

// DeleteByCode removes the shipment with the given tracking code.
func (r *MongoShipmentRepository) DeleteByCode(ctx context.Context, code string) error {
	return r.deleteOne(ctx, bson.M{"trackingCode": code})
}

// DeleteByID removes the shipment with the given internal id.
func (r *MongoShipmentRepository) DeleteByID(ctx context.Context, id string) error {
	return r.deleteOne(ctx, bson.M{"_id": id})
}

func (r *MongoShipmentRepository) deleteOne(ctx context.Context, filter bson.M) error {
	res, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete shipment: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrShipmentNotFound
	}
	return nil
}

// FindAll returns every shipment, newest-first.
func (r *MongoShipmentRepository) FindAll(ctx context.Context) ([]domain.Shipment, error) {
	return r.findMany(ctx, bson.M{}, options.Find().SetSort(newestFirst))
}

// Search returns shipments matching the filter, newest-first.
func (r *MongoShipmentRepository) Search(ctx context.Context, filter ports.SearchFilter) ([]domain.Shipment, error) {
	query := bson.M{}
	if filter.RecipientName != "" {
		query["recipientName"] = bson.M{"$regex": filter.RecipientName, "$options": "i"}
	}
	if filter.Status != nil {
		query["status"] = *filter.Status
	}
	if filter.From != nil || filter.To != nil {
		created := bson.M{}
		if filter.From != nil {
			created["$gte"] = *filter.From
		}
		if filter.To != nil {
			created["$lte"] = *filter.To
		}
		query["createdAt"] = created
	}

	return r.findMany(ctx, query, options.Find().SetSort(newestFirst))
}

// FindByClient returns shipments owned by a client, newest-first.
func (r *MongoShipmentRepository) FindByClient(ctx context.Context, clientID string) ([]domain.Shipment, error) {
	return r.findMany(ctx, bson.M{"clientId": clientID}, options.Find().SetSort(newestFirst))
}

// FindForCourier returns the union of unassigned Created shipments and
// shipments assigned to the given courier, newest-first.
func (r *MongoShipmentRepository) FindForCourier(ctx context.Context, courierID string) ([]domain.Shipment, error) {
	query := bson.M{"$or": bson.A{
		bson.M{
			"status": domain.StatusCreated,
			"$or": bson.A{
				bson.M{"courierId": bson.M{"$exists": false}},
				bson.M{"courierId": ""},
			},
		},
		bson.M{"courierId": courierID},
	}}

	return r.findMany(ctx, query, options.Find().SetSort(newestFirst))
}

func (r *MongoShipmentRepository) findMany(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.Shipment, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query shipments: %w", err)
	}
	defer cursor.Close(ctx)

	shipments := []domain.Shipment{}
	if err := cursor.All(ctx, &shipments); err != nil {
		return nil, fmt.Errorf("failed to decode shipments: %w", err)
	}
	return shipments, nil
}

// Claim atomically assigns the courier to an unclaimed shipment. The filter
// only matches while the courier field is unset, so exactly one of N
// concurrent claimers can win; the conditional update is the entire
// first-claim-wins guarantee.
func (r *MongoShipmentRepository) Claim(ctx context.Context, code, courierID string, entry domain.StatusEntry) (*domain.Shipment, error) {
	filter := bson.M{
		"trackingCode": code,
		"$or": bson.A{
			bson.M{"courierId": bson.M{"$exists": false}},
			bson.M{"courierId": ""},
		},
	}
	update := bson.M{
		"$set": bson.M{
			"courierId": courierID,
			"status":    entry.Status,
			"updatedAt": entry.Date,
		},
		"$push": bson.M{"history": entry},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var shipment domain.Shipment
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&shipment)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// Distinguish a missing shipment from a lost claim race.
		if _, findErr := r.FindByCode(ctx, code); findErr != nil {
			return nil, findErr
		}
		return nil, domain.ErrAlreadyClaimed
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim shipment: %w", err)
	}
	return &shipment, nil
}

// CountAll returns the total number of shipments.
func (r *MongoShipmentRepository) CountAll(ctx context.Context) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count shipments: %w", err)
	}
	return count, nil
}

// CountByStatus returns shipment counts grouped by status.
func (r *MongoShipmentRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate statuses: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Status string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode status counts: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// FindRecent returns the newest shipments, newest-first.
func (r *MongoShipmentRepository) FindRecent(ctx context.Context, limit int64) ([]domain.Shipment, error) {
	opts := options.Find().
		SetSort(newestFirst).
		SetLimit(limit)
	return r.findMany(ctx, bson.M{}, opts)
}

// CountPerDay returns per-day shipment counts over the full history.
func (r *MongoShipmentRepository) CountPerDay(ctx context.Context) ([]ports.DayCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{
				"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$createdAt"},
			},
			"total": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate per-day counts: %w", err)
	}
	defer cursor.Close(ctx)

	counts := []ports.DayCount{}
	if err := cursor.All(ctx, &counts); err != nil {
		return nil, fmt.Errorf("failed to decode per-day counts: %w", err)
	}
	return counts, nil
}

package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"bookstore/pkg/domain"
)

const defaultMongoDatabase = "bookstore"

// MongoStore implements Store on a MongoDB database.
type MongoStore struct {
	client *mongo.Client
	books  *mongo.Collection
	orders *mongo.Collection
	users  *mongo.Collection
}

type bookDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Author      string             `bson:"author"`
	Category    string             `bson:"category"`
	Description string             `bson:"description"`
	CoverImage  string             `bson:"coverImage"`
	Price       float64            `bson:"price"`
	OldPrice    float64            `bson:"oldPrice,omitempty"`
	Trending    bool               `bson:"trending"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

type addressDoc struct {
	City    string `bson:"city"`
	Country string `bson:"country,omitempty"`
	State   string `bson:"state,omitempty"`
	Zipcode string `bson:"zipcode,omitempty"`
}

type orderDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Name       string             `bson:"name"`
	Email      string             `bson:"email"`
	Address    addressDoc         `bson:"address"`
	Phone      string             `bson:"phone,omitempty"`
	ProductIDs []string           `bson:"productIds"`
	TotalPrice float64            `bson:"totalPrice"`
	CreatedAt  time.Time          `bson:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt"`
}

type userDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Username  string             `bson:"username"`
	Password  string             `bson:"password"`
	Role      string             `bson:"role"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

// NewMongoStore connects, pings, and ensures indexes.
// The database name falls back to the one in the URI, then to "bookstore".
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	database = strings.TrimSpace(database)
	if database == "" {
		cs, err := connstring.ParseAndValidate(uri)
		if err != nil {
			return nil, fmt.Errorf("parse mongo uri: %w", err)
		}
		database = cs.Database
	}
	if database == "" {
		database = defaultMongoDatabase
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	db := client.Database(database)
	s := &MongoStore{
		client: client,
		books:  db.Collection("books"),
		orders: db.Collection("orders"),
		users:  db.Collection("users"),
	}
	if err := s.Ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	if _, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("create users index: %w", err)
	}
	if _, err := s.orders.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}, {Key: "createdAt", Value: -1}},
	}); err != nil {
		return fmt.Errorf("create orders index: %w", err)
	}
	if _, err := s.books.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	}); err != nil {
		return fmt.Errorf("create books index: %w", err)
	}
	return nil
}

func (s *MongoStore) CreateBook(ctx context.Context, b domain.Book) (domain.Book, error) {
	doc := bookToDoc(b)
	doc.ID = primitive.NewObjectID()
	if _, err := s.books.InsertOne(ctx, doc); err != nil {
		return domain.Book{}, fmt.Errorf("insert book: %w", err)
	}
	return bookFromDoc(doc), nil
}

func (s *MongoStore) GetBook(ctx context.Context, id string) (domain.Book, bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.Book{}, false, nil
	}
	var doc bookDoc
	if err := s.books.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Book{}, false, nil
		}
		return domain.Book{}, false, err
	}
	return bookFromDoc(doc), true, nil
}

func (s *MongoStore) ListBooks(ctx context.Context, filter BookFilter) ([]domain.Book, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := s.books.Find(ctx, bookQuery(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("find books: %w", err)
	}
	var docs []bookDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode books: %w", err)
	}
	res := make([]domain.Book, 0, len(docs))
	for _, d := range docs {
		res = append(res, bookFromDoc(d))
	}
	return res, nil
}

func (s *MongoStore) CountBooks(ctx context.Context, filter BookFilter) (int64, error) {
	return s.books.CountDocuments(ctx, bookQuery(filter))
}

func bookQuery(filter BookFilter) bson.M {
	q := bson.M{}
	if c := filter.normalizedCategory(); c != "" {
		q["category"] = primitive.Regex{Pattern: `^\s*` + regexp.QuoteMeta(c) + `\s*$`, Options: "i"}
	}
	if filter.Trending != nil {
		q["trending"] = *filter.Trending
	}
	return q
}

// UpdateBook applies $set with only the patched fields and returns the new document.
func (s *MongoStore) UpdateBook(ctx context.Context, id string, patch domain.BookPatch, updatedAt time.Time) (domain.Book, bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.Book{}, false, nil
	}
	set := bookPatchFields(patch)
	set["updatedAt"] = updatedAt
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc bookDoc
	err = s.books.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Book{}, false, nil
		}
		return domain.Book{}, false, fmt.Errorf("update book: %w", err)
	}
	return bookFromDoc(doc), true, nil
}

func (s *MongoStore) DeleteBook(ctx context.Context, id string) (domain.Book, bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.Book{}, false, nil
	}
	var doc bookDoc
	if err := s.books.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Book{}, false, nil
		}
		return domain.Book{}, false, fmt.Errorf("delete book: %w", err)
	}
	return bookFromDoc(doc), true, nil
}

func (s *MongoStore) CreateOrder(ctx context.Context, o domain.Order) (domain.Order, error) {
	doc := orderToDoc(o)
	doc.ID = primitive.NewObjectID()
	if _, err := s.orders.InsertOne(ctx, doc); err != nil {
		return domain.Order{}, fmt.Errorf("insert order: %w", err)
	}
	return orderFromDoc(doc), nil
}

func (s *MongoStore) ListOrdersByEmail(ctx context.Context, email string) ([]domain.Order, error) {
	return s.findOrders(ctx, bson.M{"email": email}, -1)
}

func (s *MongoStore) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return s.findOrders(ctx, bson.M{}, 1)
}

func (s *MongoStore) findOrders(ctx context.Context, filter bson.M, sort int) ([]domain.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: sort}})
	cur, err := s.orders.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	var docs []orderDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	res := make([]domain.Order, 0, len(docs))
	for _, d := range docs {
		res = append(res, orderFromDoc(d))
	}
	return res, nil
}

func (s *MongoStore) GetUserByUsername(ctx context.Context, username string) (domain.User, bool, error) {
	var doc userDoc
	if err := s.users.FindOne(ctx, bson.M{"username": username}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromDoc(doc), true, nil
}

// SaveUser upserts by username.
func (s *MongoStore) SaveUser(ctx context.Context, u domain.User) (domain.User, error) {
	now := time.Now().UTC()
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = now
	}
	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	update := bson.M{
		"$set": bson.M{
			"password":  u.Password,
			"role":      string(u.Role),
			"updatedAt": u.UpdatedAt,
		},
		"$setOnInsert": bson.M{"createdAt": createdAt},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var doc userDoc
	if err := s.users.FindOneAndUpdate(ctx, bson.M{"username": u.Username}, update, opts).Decode(&doc); err != nil {
		return domain.User{}, fmt.Errorf("save user: %w", err)
	}
	return userFromDoc(doc), nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func bookPatchFields(p domain.BookPatch) bson.M {
	set := bson.M{}
	if p.Title != nil {
		set["title"] = *p.Title
	}
	if p.Author != nil {
		set["author"] = *p.Author
	}
	if p.Category != nil {
		set["category"] = *p.Category
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.CoverImage != nil {
		set["coverImage"] = *p.CoverImage
	}
	if p.Price != nil {
		set["price"] = *p.Price
	}
	if p.OldPrice != nil {
		set["oldPrice"] = *p.OldPrice
	}
	if p.Trending != nil {
		set["trending"] = *p.Trending
	}
	return set
}

// mongoTime matches the millisecond UTC precision of BSON dates, so values
// returned on insert equal what a later read decodes.
func mongoTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

func bookToDoc(b domain.Book) bookDoc {
	return bookDoc{
		Title:       b.Title,
		Author:      b.Author,
		Category:    b.Category,
		Description: b.Description,
		CoverImage:  b.CoverImage,
		Price:       b.Price,
		OldPrice:    b.OldPrice,
		Trending:    b.Trending,
		CreatedAt:   mongoTime(b.CreatedAt),
		UpdatedAt:   mongoTime(b.UpdatedAt),
	}
}

func bookFromDoc(d bookDoc) domain.Book {
	return domain.Book{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Author:      d.Author,
		Category:    d.Category,
		Description: d.Description,
		CoverImage:  d.CoverImage,
		Price:       d.Price,
		OldPrice:    d.OldPrice,
		Trending:    d.Trending,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func orderToDoc(o domain.Order) orderDoc {
	return orderDoc{
		Name:  o.Name,
		Email: o.Email,
		Address: addressDoc{
			City:    o.Address.City,
			Country: o.Address.Country,
			State:   o.Address.State,
			Zipcode: o.Address.Zipcode,
		},
		Phone:      o.Phone,
		ProductIDs: o.ProductIDs,
		TotalPrice: o.TotalPrice,
		CreatedAt:  mongoTime(o.CreatedAt),
		UpdatedAt:  mongoTime(o.UpdatedAt),
	}
}

func orderFromDoc(d orderDoc) domain.Order {
	return domain.Order{
		ID:    d.ID.Hex(),
		Name:  d.Name,
		Email: d.Email,
		Address: domain.Address{
			City:    d.Address.City,
			Country: d.Address.Country,
			State:   d.Address.State,
			Zipcode: d.Address.Zipcode,
		},
		Phone:      d.Phone,
		ProductIDs: d.ProductIDs,
		TotalPrice: d.TotalPrice,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

func userFromDoc(d userDoc) domain.User {
	role := domain.UserRole(d.Role)
	if role == "" {
		role = domain.RoleUser
	}
	return domain.User{
		ID:        d.ID.Hex(),
		Username:  d.Username,
		Password:  d.Password,
		Role:      role,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

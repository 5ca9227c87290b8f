package products

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/imrishuroy/go-marketplace-api/internal/apperr"
	"github.com/imrishuroy/go-marketplace-api/internal/aws"
)

// ErrOutOfStock is returned by DecrementQuantity when quantity would drop below zero.
var ErrOutOfStock = errors.New("product out of stock")

// Store encapsulates operations on the products table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
	newID     func() string
}

// NewStore creates a new products Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
		newID:     uuid.NewString,
	}
}

func productKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"product_id": &types.AttributeValueMemberS{Value: id},
	}
}

func notFound(id string) error {
	return fmt.Errorf("product %s: %w", id, apperr.ErrNotFound)
}

// Create assigns an id and timestamps and stores p.
func (s *Store) Create(ctx context.Context, p Product) (*Product, error) {
	now := s.nowFunc().UTC()
	p.ProductID = s.newID()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Images == nil {
		p.Images = []string{}
	}

	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return nil, fmt.Errorf("marshal product: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(product_id)"),
	})
	if err != nil {
		return nil, fmt.Errorf("put item: %w", err)
	}
	return &p, nil
}

// Get fetches a product by id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, id string) (*Product, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       productKey(id),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var p Product
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, fmt.Errorf("unmarshal product: %w", err)
	}
	return &p, nil
}

func (s *Store) scan(ctx context.Context, input *dyn.ScanInput) ([]Product, error) {
	input.TableName = &s.tableName
	items, err := aws.ScanAll(ctx, s.client, input)
	if err != nil {
		return nil, fmt.Errorf("scan products: %w", err)
	}
	list := make([]Product, 0, len(items))
	if err := attributevalue.UnmarshalListOfMaps(items, &list); err != nil {
		return nil, fmt.Errorf("unmarshal products: %w", err)
	}
	// newest first; ties broken by id so pages are stable
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ProductID < list[j].ProductID
	})
	return list, nil
}

// List returns every product.
func (s *Store) List(ctx context.Context) ([]Product, error) {
	return s.scan(ctx, &dyn.ScanInput{})
}

// ListHome returns up to limit products flagged for the homepage.
func (s *Store) ListHome(ctx context.Context, limit int) ([]Product, error) {
	list, err := s.scan(ctx, &dyn.ScanInput{
		FilterExpression:         awsString("#h = :yes"),
		ExpressionAttributeNames: map[string]string{"#h": "show_on_home"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":yes": &types.AttributeValueMemberBOOL{Value: true},
		},
	})
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

// ListByManager filters on the embedded manager.email attribute.
func (s *Store) ListByManager(ctx context.Context, email string) ([]Product, error) {
	return s.scan(ctx, &dyn.ScanInput{
		FilterExpression:         awsString("#m.#e = :email"),
		ExpressionAttributeNames: map[string]string{"#m": "manager", "#e": "email"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":email": &types.AttributeValueMemberS{Value: email},
		},
	})
}

// Paginate returns the requested page with totals.
func (s *Store) Paginate(ctx context.Context, page, limit int) (*Page, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	w := Paginate(len(all), page, limit)
	return &Page{
		Products:      w.Slice(all),
		TotalProducts: len(all),
		TotalPages:    w.TotalPages,
		Page:          w.Page,
		Limit:         w.Limit,
	}, nil
}

// Replace overwrites every editable field (PUT semantics); unset fields are cleared to zero values.
func (s *Store) Replace(ctx context.Context, id string, f Fields) (*Product, error) {
	return s.Patch(ctx, id, f.withZeroDefaults())
}

// Patch applies only the fields that are set. A Fields value with nothing set is a no-op read.
func (s *Store) Patch(ctx context.Context, id string, f Fields) (*Product, error) {
	b := newUpdateBuilder()
	if f.Title != nil {
		b.set("title", &types.AttributeValueMemberS{Value: *f.Title})
	}
	if f.Description != nil {
		b.set("description", &types.AttributeValueMemberS{Value: *f.Description})
	}
	if f.Category != nil {
		b.set("category", &types.AttributeValueMemberS{Value: *f.Category})
	}
	if f.Price != nil {
		av, err := f.Price.MarshalDynamoDBAttributeValue()
		if err != nil {
			return nil, err
		}
		b.set("price", av)
	}
	if f.Quantity != nil {
		b.set("quantity", &types.AttributeValueMemberN{Value: strconv.Itoa(*f.Quantity)})
	}
	if f.MOQ != nil {
		b.set("moq", &types.AttributeValueMemberN{Value: strconv.Itoa(*f.MOQ)})
	}
	if f.Images != nil {
		av, err := attributevalue.Marshal(f.Images)
		if err != nil {
			return nil, fmt.Errorf("marshal images: %w", err)
		}
		b.set("images", av)
	}
	if f.Video != nil {
		b.set("video", &types.AttributeValueMemberS{Value: *f.Video})
	}
	if f.PaymentOption != nil {
		b.set("payment_option", &types.AttributeValueMemberS{Value: *f.PaymentOption})
	}
	if f.ShowOnHome != nil {
		b.set("show_on_home", &types.AttributeValueMemberBOOL{Value: *f.ShowOnHome})
	}
	if b.empty() {
		p, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, notFound(id)
		}
		return p, nil
	}
	b.set("updated_at", &types.AttributeValueMemberS{Value: s.nowFunc().UTC().Format(time.RFC3339Nano)})

	out, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                 &s.tableName,
		Key:                       productKey(id),
		UpdateExpression:          awsString(b.expression()),
		ExpressionAttributeNames:  b.names,
		ExpressionAttributeValues: b.values,
		ConditionExpression:       awsString("attribute_exists(product_id)"),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, notFound(id)
		}
		return nil, fmt.Errorf("update item: %w", err)
	}
	var p Product
	if err := attributevalue.UnmarshalMap(out.Attributes, &p); err != nil {
		return nil, fmt.Errorf("unmarshal product: %w", err)
	}
	return &p, nil
}

// SetShowOnHome toggles the homepage flag.
func (s *Store) SetShowOnHome(ctx context.Context, id string, show bool) (*Product, error) {
	return s.Patch(ctx, id, Fields{ShowOnHome: &show})
}

// Delete removes a product. Deleting an unknown id is ErrNotFound.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.client.DeleteItem(ctx, &dyn.DeleteItemInput{
		TableName:           &s.tableName,
		Key:                 productKey(id),
		ConditionExpression: awsString("attribute_exists(product_id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return notFound(id)
		}
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

// DecrementQuantity atomically subtracts n from quantity, refusing to go below zero.
func (s *Store) DecrementQuantity(ctx context.Context, id string, n int) error {
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                &s.tableName,
		Key:                      productKey(id),
		UpdateExpression:         awsString("SET updated_at = :ua ADD #q :delta"),
		ConditionExpression:      awsString("attribute_exists(product_id) AND #q >= :n"),
		ExpressionAttributeNames: map[string]string{"#q": "quantity"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":delta": &types.AttributeValueMemberN{Value: strconv.Itoa(-n)},
			":n":     &types.AttributeValueMemberN{Value: strconv.Itoa(n)},
			":ua":    &types.AttributeValueMemberS{Value: s.nowFunc().UTC().Format(time.RFC3339Nano)},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			p, getErr := s.Get(ctx, id)
			if getErr != nil {
				return getErr
			}
			if p == nil {
				return notFound(id)
			}
			return fmt.Errorf("product %s has %d left: %w", id, p.Quantity, ErrOutOfStock)
		}
		return fmt.Errorf("decrement quantity: %w", err)
	}
	return nil
}

// updateBuilder assembles a SET expression with one placeholder pair per attribute.
type updateBuilder struct {
	actions []string
	names   map[string]string
	values  map[string]types.AttributeValue
}

func newUpdateBuilder() *updateBuilder {
	return &updateBuilder{
		names:  map[string]string{},
		values: map[string]types.AttributeValue{},
	}
}

func (b *updateBuilder) set(attr string, v types.AttributeValue) {
	n := len(b.actions)
	name, value := fmt.Sprintf("#f%d", n), fmt.Sprintf(":v%d", n)
	b.names[name] = attr
	b.values[value] = v
	b.actions = append(b.actions, name+" = "+value)
}

func (b *updateBuilder) empty() bool { return len(b.actions) == 0 }

func (b *updateBuilder) expression() string {
	return "SET " + strings.Join(b.actions, ", ")
}

func awsString(s string) *string { return &s }

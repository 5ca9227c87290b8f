package users

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/imrishuroy/go-marketplace-api/internal/apperr"
	"github.com/imrishuroy/go-marketplace-api/internal/aws"
)

// namespace for name-based user ids; changing it orphans every stored user.
var userNamespace = uuid.MustParse("6f1c9a3e-4b27-5d8e-9c61-0a2f7e4d3b15")

// IDForEmail derives the stable user id for an email. Emails compare case-insensitively.
func IDForEmail(email string) string {
	return uuid.NewSHA1(userNamespace, []byte(normalizeEmail(email))).String()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Store encapsulates operations on the users table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a new users Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

func userKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"user_id": &types.AttributeValueMemberS{Value: id},
	}
}

func notFound(id string) error {
	return fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
}

// Upsert creates the user on first login and otherwise only advances last_loggedIn.
// created_at, role and status of an existing user are never touched.
func (s *Store) Upsert(ctx context.Context, u User) (*User, bool, error) {
	now := s.nowFunc().UTC()
	u.Email = normalizeEmail(u.Email)
	u.UserID = IDForEmail(u.Email)
	u.Role = ""
	u.Status = StatusActive
	u.SuspendFeedback = ""
	u.CreatedAt = now
	u.LastLoggedIn = now

	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return nil, false, fmt.Errorf("marshal user: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(user_id)"),
	})
	if err == nil {
		return &u, true, nil
	}
	var ccf *types.ConditionalCheckFailedException
	if !errors.As(err, &ccf) {
		return nil, false, fmt.Errorf("put item: %w", err)
	}

	out, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                &s.tableName,
		Key:                      userKey(u.UserID),
		UpdateExpression:         awsString("SET #ll = :now"),
		ExpressionAttributeNames: map[string]string{"#ll": "last_loggedIn"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339Nano)},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		return nil, false, fmt.Errorf("update last login: %w", err)
	}
	var existing User
	if err := attributevalue.UnmarshalMap(out.Attributes, &existing); err != nil {
		return nil, false, fmt.Errorf("unmarshal user: %w", err)
	}
	return &existing, false, nil
}

// Get fetches a user by id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, id string) (*User, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       userKey(id),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var u User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &u, nil
}

// GetByEmail is Get on the derived id.
func (s *Store) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.Get(ctx, IDForEmail(email))
}

// List returns every user, oldest first.
func (s *Store) List(ctx context.Context) ([]User, error) {
	items, err := aws.ScanAll(ctx, s.client, &dyn.ScanInput{TableName: &s.tableName})
	if err != nil {
		return nil, fmt.Errorf("scan users: %w", err)
	}
	list := make([]User, 0, len(items))
	if err := attributevalue.UnmarshalListOfMaps(items, &list); err != nil {
		return nil, fmt.Errorf("unmarshal users: %w", err)
	}
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].Email < list[j].Email
	})
	return list, nil
}

// SetRole assigns role; RoleCustomer removes the stored role.
func (s *Store) SetRole(ctx context.Context, id, role string) error {
	if !ValidRole(role) {
		return fmt.Errorf("role %q: %w", role, apperr.ErrValidationFailed)
	}
	if role == RoleCustomer {
		return s.update(ctx, id, "REMOVE #r", map[string]string{"#r": "role"}, nil)
	}
	return s.update(ctx, id, "SET #r = :role",
		map[string]string{"#r": "role"},
		map[string]types.AttributeValue{":role": &types.AttributeValueMemberS{Value: role}})
}

// Suspend blocks the account. feedback is required.
func (s *Store) Suspend(ctx context.Context, id, feedback string) error {
	if strings.TrimSpace(feedback) == "" {
		return fmt.Errorf("suspend user %s without feedback: %w", id, apperr.ErrValidationFailed)
	}
	return s.update(ctx, id, "SET #s = :status, suspend_feedback = :fb",
		map[string]string{"#s": "status"},
		map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: StatusSuspended},
			":fb":     &types.AttributeValueMemberS{Value: feedback},
		})
}

// Activate lifts a suspension and clears the feedback note.
func (s *Store) Activate(ctx context.Context, id string) error {
	return s.update(ctx, id, "SET #s = :status REMOVE suspend_feedback",
		map[string]string{"#s": "status"},
		map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: StatusActive},
		})
}

func (s *Store) update(ctx context.Context, id, expr string, names map[string]string, values map[string]types.AttributeValue) error {
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                 &s.tableName,
		Key:                       userKey(id),
		UpdateExpression:          &expr,
		ConditionExpression:       awsString("attribute_exists(user_id)"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return notFound(id)
		}
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func awsString(s string) *string { return &s }

// Package dynamotest provides an in-memory DynamoDB used by the store and service tests.
//
// It evaluates the subset of the expression language the stores emit:
// conditions and filters made of comparisons, attribute_exists and attribute_not_exists joined by AND;
// SET (with list_append, if_not_exists, + and -), ADD and REMOVE update actions.
package dynamotest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Fake stores items per table in a nested map: table -> pk value -> item.
type Fake struct {
	mu     sync.Mutex
	keys   map[string]string
	tables map[string]map[string]map[string]types.AttributeValue
	fail   map[string]error

	// BeforeTransact runs (unlocked) before each TransactWriteItems call is applied.
	// Tests use it to interleave a competing writer.
	BeforeTransact func()

	Calls map[string]int
}

// New returns an empty fake with no tables.
func New() *Fake {
	return &Fake{
		keys:   map[string]string{},
		tables: map[string]map[string]map[string]types.AttributeValue{},
		fail:   map[string]error{},
		Calls:  map[string]int{},
	}
}

// CreateTable registers a table with its string partition key attribute.
func (f *Fake) CreateTable(name, partitionKey string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys[name] = partitionKey
	if _, ok := f.tables[name]; !ok {
		f.tables[name] = map[string]map[string]types.AttributeValue{}
	}
	return f
}

// FailNext makes the next call of op (e.g. "UpdateItem") return err.
func (f *Fake) FailNext(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[op] = err
}

// Seed writes item directly, bypassing conditions.
func (f *Fake) Seed(table string, item map[string]types.AttributeValue) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pk, err := f.pkOfItem(table, item)
	if err != nil {
		panic(err)
	}
	f.tables[table][pk] = cloneItem(item)
}

// Item returns a copy of the stored item, or nil.
func (f *Fake) Item(table, key string) map[string]types.AttributeValue {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.tables[table][key]
	if !ok {
		return nil
	}
	return cloneItem(item)
}

// Len reports the number of items in table.
func (f *Fake) Len(table string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tables[table])
}

func (f *Fake) enter(op string) error {
	f.Calls[op]++
	if err, ok := f.fail[op]; ok {
		delete(f.fail, op)
		return err
	}
	return nil
}

func (f *Fake) pkAttr(table string) (string, error) {
	pk, ok := f.keys[table]
	if !ok {
		return "", &types.ResourceNotFoundException{Message: aws.String("table not found: " + table)}
	}
	return pk, nil
}

func (f *Fake) pkOfItem(table string, item map[string]types.AttributeValue) (string, error) {
	attr, err := f.pkAttr(table)
	if err != nil {
		return "", err
	}
	v, ok := item[attr].(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("item missing string key %q", attr)
	}
	return v.Value, nil
}

func conditionFailed() error {
	return &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
}

func (f *Fake) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetItem"); err != nil {
		return nil, err
	}
	table := aws.ToString(params.TableName)
	pk, err := f.pkOfItem(table, params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := f.tables[table][pk]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: cloneItem(item)}, nil
}

func (f *Fake) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("PutItem"); err != nil {
		return nil, err
	}
	table := aws.ToString(params.TableName)
	if err := f.put(table, params.Item, params.ConditionExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues, true); err != nil {
		return nil, err
	}
	return &dyn.PutItemOutput{}, nil
}

func (f *Fake) put(table string, item map[string]types.AttributeValue, cond *string, names map[string]string, values map[string]types.AttributeValue, apply bool) error {
	pk, err := f.pkOfItem(table, item)
	if err != nil {
		return err
	}
	current := f.tables[table][pk]
	ok, err := evalCondition(aws.ToString(cond), current, names, values)
	if err != nil {
		return err
	}
	if !ok {
		return conditionFailed()
	}
	if apply {
		f.tables[table][pk] = cloneItem(item)
	}
	return nil
}

func (f *Fake) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UpdateItem"); err != nil {
		return nil, err
	}
	table := aws.ToString(params.TableName)
	old, updated, err := f.update(table, params.Key, params.UpdateExpression, params.ConditionExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues, true)
	if err != nil {
		return nil, err
	}
	out := &dyn.UpdateItemOutput{}
	switch params.ReturnValues {
	case types.ReturnValueAllOld, types.ReturnValueUpdatedOld:
		out.Attributes = old
	case types.ReturnValueAllNew, types.ReturnValueUpdatedNew:
		out.Attributes = cloneItem(updated)
	}
	return out, nil
}

func (f *Fake) update(table string, key map[string]types.AttributeValue, expr, cond *string, names map[string]string, values map[string]types.AttributeValue, apply bool) (map[string]types.AttributeValue, map[string]types.AttributeValue, error) {
	pk, err := f.pkOfItem(table, key)
	if err != nil {
		return nil, nil, err
	}
	current, exists := f.tables[table][pk]
	ok, err := evalCondition(aws.ToString(cond), current, names, values)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, conditionFailed()
	}
	var next map[string]types.AttributeValue
	if exists {
		next = cloneItem(current)
	} else {
		next = cloneItem(key)
	}
	if err := applyUpdate(aws.ToString(expr), next, names, values); err != nil {
		return nil, nil, err
	}
	if apply {
		f.tables[table][pk] = next
	}
	var old map[string]types.AttributeValue
	if exists {
		old = cloneItem(current)
	}
	return old, next, nil
}

func (f *Fake) DeleteItem(ctx context.Context, params *dyn.DeleteItemInput, optFns ...func(*dyn.Options)) (*dyn.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeleteItem"); err != nil {
		return nil, err
	}
	table := aws.ToString(params.TableName)
	pk, err := f.pkOfItem(table, params.Key)
	if err != nil {
		return nil, err
	}
	current, exists := f.tables[table][pk]
	ok, err := evalCondition(aws.ToString(params.ConditionExpression), current, params.ExpressionAttributeNames, params.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, conditionFailed()
	}
	delete(f.tables[table], pk)
	out := &dyn.DeleteItemOutput{}
	if exists && params.ReturnValues == types.ReturnValueAllOld {
		out.Attributes = cloneItem(current)
	}
	return out, nil
}

// sortedItems returns the table's items ordered by partition key so results are deterministic.
func (f *Fake) sortedItems(table string) []map[string]types.AttributeValue {
	keys := make([]string, 0, len(f.tables[table]))
	for k := range f.tables[table] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]map[string]types.AttributeValue, 0, len(keys))
	for _, k := range keys {
		out = append(out, f.tables[table][k])
	}
	return out
}

func (f *Fake) Query(ctx context.Context, params *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("Query"); err != nil {
		return nil, err
	}
	table := aws.ToString(params.TableName)
	if _, err := f.pkAttr(table); err != nil {
		return nil, err
	}
	var items []map[string]types.AttributeValue
	for _, item := range f.sortedItems(table) {
		ok, err := evalCondition(aws.ToString(params.KeyConditionExpression), item, params.ExpressionAttributeNames, params.ExpressionAttributeValues)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		ok, err = evalCondition(aws.ToString(params.FilterExpression), item, params.ExpressionAttributeNames, params.ExpressionAttributeValues)
		if err != nil {
			return nil, err
		}
		if ok {
			items = append(items, cloneItem(item))
		}
	}
	return &dyn.QueryOutput{Items: items, Count: int32(len(items))}, nil
}

func (f *Fake) Scan(ctx context.Context, params *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("Scan"); err != nil {
		return nil, err
	}
	table := aws.ToString(params.TableName)
	if _, err := f.pkAttr(table); err != nil {
		return nil, err
	}
	var items []map[string]types.AttributeValue
	for _, item := range f.sortedItems(table) {
		ok, err := evalCondition(aws.ToString(params.FilterExpression), item, params.ExpressionAttributeNames, params.ExpressionAttributeValues)
		if err != nil {
			return nil, err
		}
		if ok {
			items = append(items, cloneItem(item))
		}
	}
	return &dyn.ScanOutput{Items: items, Count: int32(len(items)), ScannedCount: int32(len(f.tables[table]))}, nil
}

func (f *Fake) TransactWriteItems(ctx context.Context, params *dyn.TransactWriteItemsInput, optFns ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	if hook := f.BeforeTransact; hook != nil {
		hook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("TransactWriteItems"); err != nil {
		return nil, err
	}

	// First pass: verify every condition without writing.
	reasons := make([]types.CancellationReason, len(params.TransactItems))
	failed := false
	for i, it := range params.TransactItems {
		reasons[i] = types.CancellationReason{Code: aws.String("None")}
		var err error
		switch {
		case it.Put != nil:
			p := it.Put
			err = f.put(aws.ToString(p.TableName), p.Item, p.ConditionExpression, p.ExpressionAttributeNames, p.ExpressionAttributeValues, false)
		case it.Update != nil:
			u := it.Update
			_, _, err = f.update(aws.ToString(u.TableName), u.Key, u.UpdateExpression, u.ConditionExpression, u.ExpressionAttributeNames, u.ExpressionAttributeValues, false)
		case it.ConditionCheck != nil:
			c := it.ConditionCheck
			var pk string
			if pk, err = f.pkOfItem(aws.ToString(c.TableName), c.Key); err == nil {
				var ok bool
				ok, err = evalCondition(aws.ToString(c.ConditionExpression), f.tables[aws.ToString(c.TableName)][pk], c.ExpressionAttributeNames, c.ExpressionAttributeValues)
				if err == nil && !ok {
					err = conditionFailed()
				}
			}
		case it.Delete != nil:
			d := it.Delete
			var pk string
			if pk, err = f.pkOfItem(aws.ToString(d.TableName), d.Key); err == nil {
				var ok bool
				ok, err = evalCondition(aws.ToString(d.ConditionExpression), f.tables[aws.ToString(d.TableName)][pk], d.ExpressionAttributeNames, d.ExpressionAttributeValues)
				if err == nil && !ok {
					err = conditionFailed()
				}
			}
		}
		if err != nil {
			var ccf *types.ConditionalCheckFailedException
			if !errors.As(err, &ccf) {
				return nil, err
			}
			reasons[i].Code = aws.String("ConditionalCheckFailed")
			failed = true
		}
	}
	if failed {
		return nil, &types.TransactionCanceledException{
			Message:             aws.String("Transaction cancelled, please refer cancellation reasons for specific reasons"),
			CancellationReasons: reasons,
		}
	}

	// Second pass: apply.
	for _, it := range params.TransactItems {
		switch {
		case it.Put != nil:
			p := it.Put
			pk, _ := f.pkOfItem(aws.ToString(p.TableName), p.Item)
			f.tables[aws.ToString(p.TableName)][pk] = cloneItem(p.Item)
		case it.Update != nil:
			u := it.Update
			if _, _, err := f.update(aws.ToString(u.TableName), u.Key, u.UpdateExpression, nil, u.ExpressionAttributeNames, u.ExpressionAttributeValues, true); err != nil {
				return nil, err
			}
		case it.Delete != nil:
			d := it.Delete
			pk, _ := f.pkOfItem(aws.ToString(d.TableName), d.Key)
			delete(f.tables[aws.ToString(d.TableName)], pk)
		}
	}
	return &dyn.TransactWriteItemsOutput{}, nil
}

func cloneItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	if item == nil {
		return nil
	}
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = cloneAV(v)
	}
	return out
}

func cloneAV(v types.AttributeValue) types.AttributeValue {
	switch x := v.(type) {
	case *types.AttributeValueMemberM:
		return &types.AttributeValueMemberM{Value: cloneItem(x.Value)}
	case *types.AttributeValueMemberL:
		l := make([]types.AttributeValue, len(x.Value))
		for i, e := range x.Value {
			l[i] = cloneAV(e)
		}
		return &types.AttributeValueMemberL{Value: l}
	default:
		return v
	}
}

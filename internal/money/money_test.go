package money

import (
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinor(t *testing.T) {
	assert.Equal(t, int64(1999), MustNew("19.99").Minor())
	assert.Equal(t, int64(2500), MustNew("25").Minor())
	assert.Equal(t, int64(1), MustNew("0.005").Minor())
	assert.True(t, FromMinor(1999).Equal(MustNew("19.99")))
}

func TestJSONIsPlainNumber(t *testing.T) {
	b, err := json.Marshal(struct {
		Price Amount `json:"price"`
	}{MustNew("12.50")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"price":12.5}`, string(b))

	var in struct {
		Price Amount `json:"price"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"price":"7.25"}`), &in))
	assert.True(t, in.Price.Equal(MustNew("7.25")))
	require.NoError(t, json.Unmarshal([]byte(`{"price":3}`), &in))
	assert.True(t, in.Price.Equal(MustNew("3")))
}

func TestDynamoAttribute(t *testing.T) {
	type row struct {
		Price Amount `dynamodbav:"price"`
	}
	item, err := attributevalue.MarshalMap(row{Price: MustNew("42.10")})
	require.NoError(t, err)

	var out row
	require.NoError(t, attributevalue.UnmarshalMap(item, &out))
	assert.True(t, out.Price.Equal(MustNew("42.1")))
}

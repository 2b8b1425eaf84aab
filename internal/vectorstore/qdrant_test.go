package vectorstore

import (
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
)

func TestQdrantPointIDDeterministic(t *testing.T) {
	id1 := qdrantPointID("chk_abc123")
	id2 := qdrantPointID("chk_abc123")
	assert.Equal(t, id1, id2)
	assert.NotEqual(t, id1, qdrantPointID("chk_different"))
}

func TestQdrantValueToString(t *testing.T) {
	cases := []struct {
		name string
		v    *qdrant.Value
		want string
	}{
		{"string", &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: "hello"}}, "hello"},
		{"integer", &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: 42}}, "42"},
		{"double", &qdrant.Value{Kind: &qdrant.Value_DoubleValue{DoubleValue: 1.5}}, "1.5"},
		{"bool", &qdrant.Value{Kind: &qdrant.Value_BoolValue{BoolValue: true}}, "true"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, qdrantValueToString(tc.v))
		})
	}
}

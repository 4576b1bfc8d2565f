package transaction

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

func TestTransactionSchema_MetadataIsJSON(t *testing.T) {
	s, err := schema.Parse(&Transaction{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)

	field := s.LookUpField("Metadata")
	require.NotNil(t, field)
	assert.Equal(t, schema.DataType("json"), field.DataType)
}

func TestJSONMap_RoundTrip(t *testing.T) {
	in := jsonMap{"source": "sms", "ref": "QX12"}
	v, err := in.Value()
	require.NoError(t, err)

	var out jsonMap
	require.NoError(t, out.Scan(v))
	assert.Equal(t, in, out)

	require.NoError(t, out.Scan(nil))
	assert.Nil(t, out)
	assert.Error(t, out.Scan(42))
}

package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConversions(t *testing.T) {
	cases := []struct {
		in     string
		snake  string
		pascal string
		camel  string
	}{
		{"firstName", "first_name", "FirstName", "firstName"},
		{"FirstName", "first_name", "FirstName", "firstName"},
		{"first_name", "first_name", "FirstName", "firstName"},
		{"target_system_person_id", "target_system_person_id", "TargetSystemPersonId", "targetSystemPersonId"},
		{"HTTPServer", "http_server", "HttpServer", "httpServer"},
		{"IDType", "id_type", "IdType", "idType"},
		{"person", "person", "Person", "person"},
		{"", "", "", ""},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.snake, ToSnake(tc.in), "ToSnake(%q)", tc.in)
		assert.Equal(t, tc.pascal, ToPascal(tc.in), "ToPascal(%q)", tc.in)
		assert.Equal(t, tc.camel, ToCamel(tc.in), "ToCamel(%q)", tc.in)
	}
}

func TestConversions_Idempotent(t *testing.T) {
	for _, in := range []string{"firstName", "date_of_birth", "PostalCode"} {
		assert.Equal(t, ToSnake(in), ToSnake(ToSnake(in)))
		assert.Equal(t, ToCamel(in), ToCamel(ToCamel(in)))
		assert.Equal(t, ToPascal(in), ToPascal(ToPascal(in)))
	}
}

func TestValueTypeFor(t *testing.T) {
	assert.Equal(t, ValueTypeString, ValueTypeFor("xs:string"))
	assert.Equal(t, ValueTypeInteger, ValueTypeFor("xs:int"))
	assert.Equal(t, ValueTypeFloat, ValueTypeFor("xs:decimal"))
	assert.Equal(t, ValueTypeBoolean, ValueTypeFor("xs:boolean"))
	assert.Equal(t, ValueTypeDateTime, ValueTypeFor("xs:dateTime"))
	assert.Equal(t, ValueTypeUnknown, ValueTypeFor("xs:duration"))
	assert.Equal(t, ValueTypeUnknown, ValueTypeFor(""))
}

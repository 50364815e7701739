package cfg

import (
	"reflect"
	"time"

	"github.com/invopop/jsonschema"

	"github.com/peter-kozarec/strategytester/pkg/utility/fixed"
)

var (
	pointType    = reflect.TypeOf(fixed.Point{})
	durationType = reflect.TypeOf(time.Duration(0))
)

// Schema describes the run file for editors and linters.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			switch t {
			case pointType:
				return &jsonschema.Schema{
					OneOf: []*jsonschema.Schema{
						{Type: "number"},
						{Type: "string", Pattern: `^-?[0-9]+(\.[0-9]+)?$`},
					},
				}
			case durationType:
				return &jsonschema.Schema{Type: "string", Description: "Go duration such as 1m or 1h30m"}
			}
			return nil
		},
	}

	schema := reflector.Reflect(&Config{})
	schema.Title = "strategytester-run"
	schema.Description = "Run file of the backtest command"
	return schema
}

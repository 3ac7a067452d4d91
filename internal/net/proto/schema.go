package proto

import (
	"github.com/invopop/jsonschema"
)

// BuildSchema describes the messages clients may send.
func BuildSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}
	schema := reflector.Reflect(new(ClientMessage))
	schema.Title = "RaSpider Client Message"
	schema.Description = "Commands and heartbeats accepted on the /ws endpoint."
	return schema
}

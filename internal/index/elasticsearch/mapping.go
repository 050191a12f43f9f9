package elasticsearch

// DefaultIndexName is the default Elasticsearch index used for product documents.
const DefaultIndexName = "products"

// buildIndexMapping returns the full JSON mapping for the products index.
// The mapping is fixed: EnsureIndex never alters an existing index.
func buildIndexMapping() string {
	return `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0
  },
  "mappings": {
    "properties": {
      "id":          { "type": "integer" },
      "name":        { "type": "text" },
      "description": { "type": "text" },
      "category":    { "type": "keyword" },
      "price":       { "type": "float" },
      "color":       { "type": "keyword" },
      "size":        { "type": "keyword" },
      "sku":         { "type": "keyword" },
      "images":      { "type": "keyword" },
      "stock":       { "type": "integer" },
      "is_active":   { "type": "boolean" }
    }
  }
}`
}

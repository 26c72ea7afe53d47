package indexes

import "github.com/elastic/go-elasticsearch/v8/typedapi/types"

// Indexes maps index names to their mappings. Each index registers itself in
// an init function.
var Indexes = map[string]*types.TypeMapping{}

package indexes

import (
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/foresturquhart/indexhook/utils"
)

const People = "people"

func englishText() types.TextProperty {
	return types.TextProperty{
		Analyzer: utils.NewPointer("english"),
		Fields: map[string]types.Property{
			"keyword": types.KeywordProperty{
				IgnoreAbove: utils.NewPointer(256),
			},
		},
	}
}

func init() {
	Indexes[People] = &types.TypeMapping{
		Properties: map[string]types.Property{
			"identifier":   types.KeywordProperty{},
			"content_type": types.KeywordProperty{},
			"id":           types.LongNumberProperty{},
			"uuid":         types.KeywordProperty{},
			"name":         englishText(),
			"description":  englishText(),
			"created_at":   types.DateProperty{},
			"updated_at":   types.DateProperty{},
			"sources": types.NestedProperty{
				Properties: map[string]types.Property{
					"url":         types.KeywordProperty{},
					"title":       englishText(),
					"description": englishText(),
				},
			},
		},
	}
}

package ai

import "context"

// Schema is the subset of the OpenAPI schema object the backend accepts as
// a structured-output contract.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
}

// Request is one prompt plus the schema its answer must follow.
type Request struct {
	Prompt     string
	SchemaName string
	Schema     *Schema
}

// Backend is a generative model endpoint that answers with JSON text.
type Backend interface {
	Generate(ctx context.Context, model string, req Request) ([]byte, error)
}

func str(desc string) *Schema {
	return &Schema{Type: "STRING", Description: desc}
}

var (
	searchPlanSchema = &Schema{
		Type: "OBJECT",
		Properties: map[string]*Schema{
			"search_pages": {
				Type: "ARRAY",
				Items: &Schema{
					Type: "OBJECT",
					Properties: map[string]*Schema{
						"site_name":  str("Marketplace domain as given"),
						"search_url": str("Absolute search results URL"),
					},
					Required: []string{"site_name", "search_url"},
				},
			},
		},
		Required: []string{"search_pages"},
	}

	candidatesSchema = &Schema{
		Type: "OBJECT",
		Properties: map[string]*Schema{
			"candidates": {
				Type: "ARRAY",
				Items: &Schema{
					Type: "OBJECT",
					Properties: map[string]*Schema{
						"url":              str("Listing link exactly as it appears on the page"),
						"title":            str("Listing title"),
						"price":            str("Price with currency"),
						"confidence_score": {Type: "INTEGER", Description: "0-100 likelihood that this is the wanted item"},
						"reasoning":        str("Brief explanation"),
					},
					Required: []string{"url", "title", "price", "confidence_score", "reasoning"},
				},
			},
		},
		Required: []string{"candidates"},
	}

	batchSchema = &Schema{
		Type: "OBJECT",
		Properties: map[string]*Schema{
			"results": {
				Type: "ARRAY",
				Items: &Schema{
					Type: "OBJECT",
					Properties: map[string]*Schema{
						"url":        str("The URL provided"),
						"found_item": {Type: "BOOLEAN", Description: "True only for the exact wanted item"},
						"item_name":  str("The clear name of the item for sale"),
						"price":      str("The price with currency"),
						"reasoning":  str("Brief explanation of why this matches or not"),
					},
					Required: []string{"url", "found_item", "item_name", "price", "reasoning"},
				},
			},
		},
		Required: []string{"results"},
	}
)

package main

// OpenAPIDocument represents the complete OpenAPI 3.0 specification
type OpenAPIDocument struct {
	OpenAPI    string              `yaml:"openapi" json:"openapi"`
	Info       InfoObject          `yaml:"info" json:"info"`
	Servers    []ServerObject      `yaml:"servers" json:"servers"`
	Paths      map[string]PathItem `yaml:"paths" json:"paths"`
	Components ComponentsObject    `yaml:"components" json:"components"`
	Tags       []TagObject         `yaml:"tags" json:"tags"`
}

// InfoObject contains API metadata
type InfoObject struct {
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	Version     string `yaml:"version" json:"version"`
}

// ServerObject defines an API server
type ServerObject struct {
	URL         string `yaml:"url" json:"url"`
	Description string `yaml:"description" json:"description"`
}

// PathItem describes operations available on a path
type PathItem struct {
	Get  *Operation `yaml:"get,omitempty" json:"get,omitempty"`
	Post *Operation `yaml:"post,omitempty" json:"post,omitempty"`
}

// Operation describes a single API operation
type Operation struct {
	Summary     string              `yaml:"summary" json:"summary"`
	Description string              `yaml:"description,omitempty" json:"description,omitempty"`
	Tags        []string            `yaml:"tags,omitempty" json:"tags,omitempty"`
	RequestBody *RequestBody        `yaml:"requestBody,omitempty" json:"requestBody,omitempty"`
	Responses   map[string]Response `yaml:"responses" json:"responses"`
}

// RequestBody describes an operation request body
type RequestBody struct {
	Required bool                 `yaml:"required,omitempty" json:"required,omitempty"`
	Content  map[string]MediaType `yaml:"content" json:"content"`
}

// Response describes an operation response
type Response struct {
	Description string               `yaml:"description" json:"description"`
	Content     map[string]MediaType `yaml:"content,omitempty" json:"content,omitempty"`
}

// MediaType describes a media type and schema
type MediaType struct {
	Schema SchemaObject `yaml:"schema" json:"schema"`
}

// SchemaObject is an inline JSON Schema or a reference to one
type SchemaObject struct {
	Ref         string                  `yaml:"$ref,omitempty" json:"$ref,omitempty"`
	Type        string                  `yaml:"type,omitempty" json:"type,omitempty"`
	Format      string                  `yaml:"format,omitempty" json:"format,omitempty"`
	Description string                  `yaml:"description,omitempty" json:"description,omitempty"`
	Properties  map[string]SchemaObject `yaml:"properties,omitempty" json:"properties,omitempty"`
	Items       *SchemaObject           `yaml:"items,omitempty" json:"items,omitempty"`
	Required    []string                `yaml:"required,omitempty" json:"required,omitempty"`
	Enum        []string                `yaml:"enum,omitempty" json:"enum,omitempty"`
}

// ComponentsObject holds reusable objects
type ComponentsObject struct {
	Schemas map[string]SchemaObject `yaml:"schemas" json:"schemas"`
}

// TagObject defines an API tag
type TagObject struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
}

func ref(name string) SchemaObject {
	return SchemaObject{Ref: "#/components/schemas/" + name}
}

func stringArray() SchemaObject {
	return SchemaObject{Type: "array", Items: &SchemaObject{Type: "string"}}
}

func jsonContent(schema SchemaObject) map[string]MediaType {
	return map[string]MediaType{"application/json": {Schema: schema}}
}

func errorResponse(description string) Response {
	return Response{
		Description: description,
		Content:     jsonContent(ref("Error")),
	}
}

// buildDocument assembles the OpenAPI spec for the assistant's API.
func buildDocument(serverURL string) OpenAPIDocument {
	return OpenAPIDocument{
		OpenAPI: "3.0.3",
		Info: InfoObject{
			Title:       "SousChef API",
			Description: "Cooking assistant backend: chat routing, ingredient recognition, recipe search, and shopping lists",
			Version:     "1.0.0",
		},
		Servers: []ServerObject{
			{URL: serverURL, Description: "API server"},
		},
		Paths: buildPaths(),
		Components: ComponentsObject{
			Schemas: buildSchemas(),
		},
		Tags: []TagObject{
			{Name: "Assistant", Description: "Chat and image analysis endpoints"},
			{Name: "Recipes", Description: "Direct recipe search and shopping list endpoints"},
			{Name: "Operations", Description: "Health and metrics endpoints"},
		},
	}
}

func buildPaths() map[string]PathItem {
	return map[string]PathItem{
		"/": {
			Get: &Operation{
				Summary: "API banner",
				Tags:    []string{"Operations"},
				Responses: map[string]Response{
					"200": {
						Description: "Welcome message",
						Content: jsonContent(SchemaObject{
							Type: "object",
							Properties: map[string]SchemaObject{
								"message": {Type: "string"},
							},
						}),
					},
				},
			},
		},
		"/healthz": {
			Get: &Operation{
				Summary:     "Aggregated health",
				Description: "Runs all registered subsystem checks and aggregates them. Degraded subsystems do not fail the endpoint.",
				Tags:        []string{"Operations"},
				Responses: map[string]Response{
					"200": {
						Description: "System healthy or degraded",
						Content:     jsonContent(ref("HealthStatus")),
					},
					"503": {
						Description: "One or more subsystems unhealthy",
						Content:     jsonContent(ref("HealthStatus")),
					},
				},
			},
		},
		"/metrics": {
			Get: &Operation{
				Summary: "Prometheus metrics",
				Tags:    []string{"Operations"},
				Responses: map[string]Response{
					"200": {Description: "Metrics in Prometheus exposition format"},
				},
			},
		},
		"/api/chat": {
			Post: &Operation{
				Summary:     "Route a chat message",
				Description: "Classifies the message and dispatches it to the matching handler. The response always renders; provider failures surface as fallback text.",
				Tags:        []string{"Assistant"},
				RequestBody: &RequestBody{
					Required: true,
					Content:  jsonContent(ref("ChatRequest")),
				},
				Responses: map[string]Response{
					"200": {
						Description: "Routed response",
						Content:     jsonContent(ref("ChatResponse")),
					},
					"400": errorResponse("Missing or malformed message"),
					"429": errorResponse("Rate limit exceeded"),
				},
			},
		},
		"/api/analyze-ingredients": {
			Post: &Operation{
				Summary:     "Identify ingredients in an image",
				Description: "Accepts a JSON body with base64 image data (optionally a data URL) or a multipart form file named \"image\". Identified ingredients feed a recipe search.",
				Tags:        []string{"Assistant"},
				RequestBody: &RequestBody{
					Required: true,
					Content: map[string]MediaType{
						"application/json": {Schema: ref("ImageUpload")},
						"multipart/form-data": {Schema: SchemaObject{
							Type: "object",
							Properties: map[string]SchemaObject{
								"image": {Type: "string", Format: "binary"},
							},
							Required: []string{"image"},
						}},
					},
				},
				Responses: map[string]Response{
					"200": {
						Description: "Identified ingredients and matching recipes",
						Content:     jsonContent(ref("AnalyzeResponse")),
					},
					"400": errorResponse("Invalid image, unsupported format, or no ingredients identified"),
					"413": errorResponse("Image exceeds the size cap"),
				},
			},
		},
		"/api/search-recipes": {
			Post: &Operation{
				Summary:     "Search recipes directly",
				Description: "Searches by ingredient list when one is given, otherwise by free-text query.",
				Tags:        []string{"Recipes"},
				RequestBody: &RequestBody{
					Required: true,
					Content:  jsonContent(ref("SearchRequest")),
				},
				Responses: map[string]Response{
					"200": {
						Description: "Matching recipes",
						Content:     jsonContent(ref("SearchResponse")),
					},
					"400": errorResponse("Neither query nor ingredients provided"),
					"503": errorResponse("Recipe search unavailable"),
				},
			},
		},
		"/api/shopping-list": {
			Post: &Operation{
				Summary:     "Build a shopping list",
				Description: "Derives what must be bought for the recipe given the ingredients already available.",
				Tags:        []string{"Recipes"},
				RequestBody: &RequestBody{
					Required: true,
					Content:  jsonContent(ref("ShoppingRequest")),
				},
				Responses: map[string]Response{
					"200": {
						Description: "Sectioned shopping list",
						Content:     jsonContent(ref("ShoppingResponse")),
					},
					"400": errorResponse("Invalid recipe or nothing to buy"),
				},
			},
		},
		"/ws/chat": {
			Get: &Operation{
				Summary:     "Websocket chat stream",
				Description: "Upgrades to a websocket session. Each inbound frame is a ChatRequest, each outbound frame a ChatResponse.",
				Tags:        []string{"Assistant"},
				Responses: map[string]Response{
					"101": {Description: "Switching protocols"},
				},
			},
		},
	}
}

func buildSchemas() map[string]SchemaObject {
	return map[string]SchemaObject{
		"Error": {
			Type: "object",
			Properties: map[string]SchemaObject{
				"error":  {Type: "string", Description: "Human-readable message"},
				"status": {Type: "integer", Description: "HTTP status code"},
			},
			Required: []string{"error", "status"},
		},
		"Recipe": {
			Type: "object",
			Properties: map[string]SchemaObject{
				"name":         {Type: "string"},
				"ingredients":  stringArray(),
				"instructions": {Type: "string"},
				"cooking_time": {Type: "string"},
				"servings":     {Type: "integer"},
				"source":       {Type: "string", Description: "Where the recipe came from, e.g. spoonacular or generated"},
			},
			Required: []string{"name"},
		},
		"ChatRequest": {
			Type: "object",
			Properties: map[string]SchemaObject{
				"message":    {Type: "string"},
				"session_id": {Type: "string", Description: "Echoed when present, generated otherwise"},
			},
			Required: []string{"message"},
		},
		"ChatResponse": {
			Type: "object",
			Properties: map[string]SchemaObject{
				"response":   {Type: "string"},
				"session_id": {Type: "string"},
				"query_type": {
					Type: "string",
					Enum: []string{"recipe_search", "cooking_question", "ingredient_recognition"},
				},
			},
			Required: []string{"response", "session_id", "query_type"},
		},
		"ImageUpload": {
			Type: "object",
			Properties: map[string]SchemaObject{
				"image_data": {
					Type:        "string",
					Description: "Base64-encoded image, or a browser data URL",
				},
			},
			Required: []string{"image_data"},
		},
		"AnalyzeResponse": {
			Type: "object",
			Properties: map[string]SchemaObject{
				"recipes":                {Type: "array", Items: &SchemaObject{Ref: "#/components/schemas/Recipe"}},
				"ingredients_identified": stringArray(),
			},
			Required: []string{"recipes", "ingredients_identified"},
		},
		"SearchRequest": {
			Type: "object",
			Properties: map[string]SchemaObject{
				"query":       {Type: "string"},
				"ingredients": stringArray(),
			},
		},
		"SearchResponse": {
			Type: "object",
			Properties: map[string]SchemaObject{
				"recipes":                {Type: "array", Items: &SchemaObject{Ref: "#/components/schemas/Recipe"}},
				"ingredients_identified": stringArray(),
			},
			Required: []string{"recipes"},
		},
		"ShoppingRequest": {
			Type: "object",
			Properties: map[string]SchemaObject{
				"recipe":                {Ref: "#/components/schemas/Recipe"},
				"available_ingredients": stringArray(),
			},
			Required: []string{"recipe"},
		},
		"ShoppingSection": {
			Type: "object",
			Properties: map[string]SchemaObject{
				"name":  {Type: "string"},
				"items": stringArray(),
			},
			Required: []string{"name", "items"},
		},
		"ShoppingResponse": {
			Type: "object",
			Properties: map[string]SchemaObject{
				"shopping_list": stringArray(),
				"sections":      {Type: "array", Items: &SchemaObject{Ref: "#/components/schemas/ShoppingSection"}},
				"recipe_name":   {Type: "string"},
				"total_items":   {Type: "integer"},
			},
			Required: []string{"shopping_list", "recipe_name", "total_items"},
		},
		"HealthStatus": {
			Type: "object",
			Properties: map[string]SchemaObject{
				"component": {Type: "string"},
				"healthy":   {Type: "boolean"},
				"status":    {Type: "string", Enum: []string{"healthy", "unhealthy", "degraded"}},
				"message":   {Type: "string"},
				"timestamp": {Type: "string", Format: "date-time"},
				"sub_statuses": {
					Type:        "array",
					Items:       &SchemaObject{Ref: "#/components/schemas/HealthStatus"},
					Description: "Per-subsystem statuses from the last check run",
				},
			},
			Required: []string{"component", "healthy", "status"},
		},
	}
}

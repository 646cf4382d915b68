// Package docs provides the swagger definition served at /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/v1/trends": {
            "get": {
                "tags": ["trends"],
                "summary": "List trends",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/trends/{id}": {
            "get": {
                "tags": ["trends"],
                "summary": "Get a trend",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/trends/{id}/observations": {
            "get": {
                "tags": ["trends"],
                "summary": "List a trend's observations",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/trends/{id}/campaigns": {
            "get": {
                "tags": ["trends"],
                "summary": "List a trend's campaigns",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/campaigns": {
            "get": {
                "tags": ["campaigns"],
                "summary": "List campaigns",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/campaigns/{id}": {
            "get": {
                "tags": ["campaigns"],
                "summary": "Get a campaign with its angles",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/campaigns/{id}/status": {
            "patch": {
                "tags": ["campaigns"],
                "summary": "Update campaign status",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/campaigns/{id}/download": {
            "post": {
                "tags": ["campaigns"],
                "summary": "Record a campaign download",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/cycles": {
            "get": {
                "tags": ["cycles"],
                "summary": "List cycle reports",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/cycles/{date}": {
            "get": {
                "tags": ["cycles"],
                "summary": "Get a cycle report by date",
                "parameters": [{"name": "date", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/cycles/{date}/attempts": {
            "get": {
                "tags": ["cycles"],
                "summary": "List generation attempts for a cycle",
                "parameters": [{"name": "date", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/cycles/run": {
            "post": {
                "tags": ["cycles"],
                "summary": "Trigger a cycle run",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/sources": {
            "get": {
                "tags": ["sources"],
                "summary": "List source health",
                "responses": {"200": {"description": "OK"}}
            }
        }
    }
}`

var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "trendscout API",
	Description:      "PR trend intelligence: signal collection, trend scoring and campaign generation.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

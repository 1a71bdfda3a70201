// Package docs is generated by swaggo/swag from the annotations in cmd/console.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/resources": {
            "get": {
                "description": "JSON API 로 조회할 수 있는 SW360 리소스와 각 리소스의 필터 파라미터를 돌려줍니다.",
                "produces": ["application/json"],
                "tags": ["resources"],
                "summary": "조회 가능한 리소스 목록",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/dto.ResourceListDTO"}
                    }
                }
            }
        },
        "/{resource}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "SW360 리소스 목록을 한 페이지 조회합니다. page 는 0부터 시작하며, page/page_entries/sort 외의 파라미터는 필터로 전달됩니다.",
                "produces": ["application/json"],
                "tags": ["resources"],
                "summary": "리소스 목록 조회",
                "parameters": [
                    {"type": "string", "description": "components, releases, packages, projects, vendors, licenses", "name": "resource", "in": "path", "required": true},
                    {"type": "integer", "description": "페이지 번호 (0부터, 기본 0)", "name": "page", "in": "query"},
                    {"type": "integer", "description": "페이지 크기 (기본 10)", "name": "page_entries", "in": "query"},
                    {"type": "string", "description": "정렬 (예: name,asc)", "name": "sort", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.ListResponseDTO"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/dto.ErrorResponseDTO"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.ErrorResponseDTO"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/dto.ErrorResponseDTO"}}
                }
            }
        }
    },
    "definitions": {
        "dto.ErrorResponseDTO": {
            "type": "object",
            "properties": {"error": {"type": "string", "example": "unauthenticated"}}
        },
        "dto.ListResponseDTO": {
            "type": "object",
            "properties": {
                "filters": {"type": "object", "additionalProperties": {"type": "string"}},
                "page": {"$ref": "#/definitions/dto.PageDTO"},
                "query": {"$ref": "#/definitions/dto.QueryDTO"},
                "resource": {"type": "string", "example": "components"},
                "rows": {}
            }
        },
        "dto.PageDTO": {
            "type": "object",
            "properties": {
                "number": {"type": "integer", "example": 0},
                "size": {"type": "integer", "example": 10},
                "totalElements": {"type": "integer", "example": 42},
                "totalPages": {"type": "integer", "example": 5}
            }
        },
        "dto.QueryDTO": {
            "type": "object",
            "properties": {
                "page": {"type": "integer", "example": 0},
                "page_entries": {"type": "integer", "example": 10},
                "sort": {"type": "string", "example": "name,asc"}
            }
        },
        "dto.ResourceDTO": {
            "type": "object",
            "properties": {
                "filters": {"type": "array", "items": {"type": "string"}},
                "name": {"type": "string", "example": "components"},
                "title": {"type": "string", "example": "Components"}
            }
        },
        "dto.ResourceListDTO": {
            "type": "object",
            "properties": {
                "resources": {"type": "array", "items": {"$ref": "#/definitions/dto.ResourceDTO"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "SW360 Console API",
	Description:      "JSON rendition of the SW360 console list screens",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

// Package docs holds the Swagger document served at /swagger/. Regenerate
// with: swag init -g internal/orgauth/http/router.go -o api/orgauth
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "AussieBroadWAN Team",
            "url": "https://github.com/aussiebroadwan/orgauth"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/livez": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/authsdk.HealthResponse"}}
                }
            }
        },
        "/readyz": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/authsdk.HealthResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/authsdk.HealthResponse"}}
                }
            }
        },
        "/v1/auth/register": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Register",
                "parameters": [
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/authsdk.RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/authsdk.TokenResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "409": {"description": "email or slug taken", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            }
        },
        "/v1/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Password login",
                "parameters": [
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/authsdk.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/authsdk.LoginResponse"}},
                    "401": {"description": "invalid credentials", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "403": {"description": "no memberships", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            }
        },
        "/v1/auth/select-organization": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Select organization",
                "parameters": [
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/authsdk.SelectOrganizationRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/authsdk.TokenResponse"}},
                    "401": {"description": "invalid, expired or reused selection token", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "403": {"description": "not a member", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            }
        },
        "/v1/auth/switch-organization": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Switch organization",
                "parameters": [
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/authsdk.SwitchOrganizationRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/authsdk.TokenResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            }
        },
        "/v1/auth/logout": {
            "post": {
                "tags": ["Auth"],
                "summary": "Logout",
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/v1/auth/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Current identity",
                "parameters": [
                    {"type": "string", "name": "X-Organization-Id", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/authsdk.MeResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            }
        },
        "/v1/organizations": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Organizations"],
                "summary": "List organizations",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/authsdk.ListOrganizationsResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            }
        },
        "/v1/organizations/current/settings": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Organizations"],
                "summary": "Get organization settings",
                "parameters": [
                    {"type": "string", "name": "X-Organization-Id", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/authsdk.OrganizationSettings"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Organizations"],
                "summary": "Update organization settings",
                "parameters": [
                    {"type": "string", "name": "X-Organization-Id", "in": "header"},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/authsdk.UpdateSettingsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/authsdk.OrganizationSettings"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            }
        },
        "/v1/organizations/current/members/{userID}/role": {
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Organizations"],
                "summary": "Change member role",
                "parameters": [
                    {"type": "string", "name": "X-Organization-Id", "in": "header"},
                    {"type": "string", "name": "userID", "in": "path", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/authsdk.ChangeRoleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/authsdk.MemberResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "authsdk.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}, "error_description": {"type": "string"}}
        },
        "authsdk.HealthChecks": {
            "type": "object",
            "properties": {"database": {"type": "string"}, "signer": {"type": "string"}}
        },
        "authsdk.HealthResponse": {
            "type": "object",
            "properties": {
                "checks": {"$ref": "#/definitions/authsdk.HealthChecks"},
                "status": {"type": "string"},
                "uptime": {"type": "string"},
                "version": {"type": "string"}
            }
        },
        "authsdk.RegisterRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string", "example": "alice@example.com"},
                "name": {"type": "string", "example": "Alice"},
                "organization_name": {"type": "string", "example": "Acme Motors"},
                "organization_slug": {"type": "string", "example": "acme"},
                "password": {"type": "string", "example": "correct-horse-battery"}
            }
        },
        "authsdk.LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string", "example": "alice@example.com"},
                "password": {"type": "string", "example": "correct-horse-battery"}
            }
        },
        "authsdk.TokenResponse": {
            "type": "object",
            "properties": {
                "access_token": {"type": "string"},
                "expires_in": {"type": "integer", "example": 900},
                "organization_id": {"type": "string"},
                "role": {"type": "string", "example": "OWNER"},
                "token_type": {"type": "string", "example": "Bearer"}
            }
        },
        "authsdk.OrganizationMembership": {
            "type": "object",
            "properties": {
                "name": {"type": "string", "example": "Acme Motors"},
                "organization_id": {"type": "string"},
                "role": {"type": "string", "example": "SELLER"},
                "slug": {"type": "string", "example": "acme"}
            }
        },
        "authsdk.LoginResponse": {
            "type": "object",
            "properties": {
                "access_token": {"type": "string"},
                "expires_in": {"type": "integer"},
                "organization_id": {"type": "string"},
                "organizations": {"type": "array", "items": {"$ref": "#/definitions/authsdk.OrganizationMembership"}},
                "requires_organization_selection": {"type": "boolean"},
                "role": {"type": "string"},
                "selection_token": {"type": "string"},
                "token_type": {"type": "string"}
            }
        },
        "authsdk.SelectOrganizationRequest": {
            "type": "object",
            "properties": {"organization_id": {"type": "string"}, "selection_token": {"type": "string"}}
        },
        "authsdk.SwitchOrganizationRequest": {
            "type": "object",
            "properties": {"organization_id": {"type": "string"}}
        },
        "authsdk.MeResponse": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "organization_id": {"type": "string"},
                "permissions": {"type": "array", "items": {"type": "string"}},
                "role": {"type": "string"},
                "user_id": {"type": "string"}
            }
        },
        "authsdk.ListOrganizationsResponse": {
            "type": "object",
            "properties": {
                "organizations": {"type": "array", "items": {"$ref": "#/definitions/authsdk.OrganizationMembership"}}
            }
        },
        "authsdk.OrganizationSettings": {
            "type": "object",
            "properties": {
                "organization_id": {"type": "string"},
                "seller_can_edit_leads": {"type": "boolean"},
                "seller_can_edit_sales": {"type": "boolean"},
                "updated_at": {"type": "string"}
            }
        },
        "authsdk.UpdateSettingsRequest": {
            "type": "object",
            "properties": {"seller_can_edit_leads": {"type": "boolean"}, "seller_can_edit_sales": {"type": "boolean"}}
        },
        "authsdk.ChangeRoleRequest": {
            "type": "object",
            "properties": {"role": {"type": "string", "example": "MANAGER"}}
        },
        "authsdk.MemberResponse": {
            "type": "object",
            "properties": {
                "organization_id": {"type": "string"},
                "role": {"type": "string"},
                "user_id": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Session token. Format: \"Bearer {token}\".",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Orgauth API",
	Description:      "Multi-tenant authentication: password login, organization selection and switching, and role based permissions per organization.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "HMS Field Verification API",
        "description": "Scoped review workflow, proximity attestation and geo administration for municipal sanitation modules.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Authentication", "description": "Login and claims issuance"},
        {"name": "Scope", "description": "Reviewer zone and ward scope"},
        {"name": "Geo", "description": "Zone, ward, area and beat hierarchy"},
        {"name": "Grants", "description": "Module role grants"},
        {"name": "Modules", "description": "Module catalog and city synchronisation"},
        {"name": "Attestations", "description": "Proximity attestations"},
        {"name": "Reviews", "description": "Field record review workflow"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "429": {"description": "Too many attempts", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/switch-city": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Switch active city",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object", "properties": {"cityId": {"type": "string"}}}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Not a member of the city", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current session",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/scope/{module}": {
            "get": {
                "tags": ["Scope"],
                "summary": "Current user's scope on a module",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "module", "in": "path", "required": true, "type": "string", "enum": ["TASKFORCE", "LITTERBINS", "SWEEPING", "TOILET"]}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/scope": {
            "get": {
                "tags": ["Scope"],
                "summary": "Resolve a user's scope",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "userId", "in": "query", "required": true, "type": "string"},
                    {"name": "cityId", "in": "query", "required": true, "type": "string"},
                    {"name": "moduleId", "in": "query", "required": true, "type": "string"},
                    {"name": "roles", "in": "query", "type": "array", "items": {"type": "string"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/geo": {
            "get": {
                "tags": ["Geo"],
                "summary": "List geo nodes",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "level", "in": "query", "type": "string", "enum": ["ZONE", "WARD", "AREA", "BEAT"]},
                    {"name": "parentId", "in": "query", "type": "string"},
                    {"name": "cityId", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Geo"],
                "summary": "Create a geo node",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateGeoNodeRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Parent rule violated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/geo/{id}": {
            "patch": {
                "tags": ["Geo"],
                "summary": "Rename a geo node",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object", "properties": {"name": {"type": "string"}}}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Geo"],
                "summary": "Delete an unreferenced geo node",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "204": {"description": "Deleted"},
                    "409": {"description": "Node still referenced", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/grants": {
            "get": {
                "tags": ["Grants"],
                "summary": "List a user's grants",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "userId", "in": "query", "required": true, "type": "string"},
                    {"name": "module", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "put": {
                "tags": ["Grants"],
                "summary": "Create or replace a grant",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpsertGrantRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Grants"],
                "summary": "Revoke a grant",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "userId", "in": "query", "required": true, "type": "string"},
                    {"name": "module", "in": "query", "required": true, "type": "string"},
                    {"name": "role", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {"204": {"description": "Revoked"}}
            }
        },
        "/admin/modules/sync": {
            "post": {
                "tags": ["Modules"],
                "summary": "Enable every module for cities and seed reviewer grants",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "cityId", "in": "query", "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/modules/refresh": {
            "post": {
                "tags": ["Modules"],
                "summary": "Reload the module catalog",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/attestations": {
            "post": {
                "tags": ["Attestations"],
                "summary": "Attest presence near an asset",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/IssueAttestationRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Too far from the asset", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "429": {"description": "Rate limited", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/assets/assigned": {
            "get": {
                "tags": ["Assets"],
                "summary": "List my assigned beats",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/assets/bin-requests": {
            "post": {
                "tags": ["Assets"],
                "summary": "Request a new litter bin",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BinRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid zone or ward", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/assets/{id}/assign": {
            "post": {
                "tags": ["Assets"],
                "summary": "Assign a beat",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssignAssetRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Beat already assigned", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reviews/{family}": {
            "get": {
                "tags": ["Reviews"],
                "summary": "List visible records",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/family"},
                    {"name": "status", "in": "query", "type": "array", "items": {"type": "string"}},
                    {"name": "assigned", "in": "query", "type": "string", "enum": ["me"]},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Reviews"],
                "summary": "Submit a field record",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/family"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitReviewRequest"}}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/reviews/{family}/{id}": {
            "get": {
                "tags": ["Reviews"],
                "summary": "Get a record",
                "security": [{"BearerAuth": []}],
                "parameters": [{"$ref": "#/parameters/family"}, {"$ref": "#/parameters/recordId"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/reviews/{family}/{id}/decision": {
            "post": {
                "tags": ["Reviews"],
                "summary": "Approve, reject or escalate",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/family"},
                    {"$ref": "#/parameters/recordId"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DecisionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Outside scope", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Invalid transition", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reviews/{family}/{id}/action": {
            "post": {
                "tags": ["Reviews"],
                "summary": "Report remediation",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/family"},
                    {"$ref": "#/parameters/recordId"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ActionTakenRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/reviews/{family}/{id}/audit": {
            "get": {
                "tags": ["Reviews"],
                "summary": "Audit trail",
                "security": [{"BearerAuth": []}],
                "parameters": [{"$ref": "#/parameters/family"}, {"$ref": "#/parameters/recordId"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/reviews/{family}/{id}/audit/export": {
            "get": {
                "tags": ["Reviews"],
                "summary": "Download audit trail",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"$ref": "#/parameters/family"},
                    {"$ref": "#/parameters/recordId"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {"200": {"description": "File"}}
            }
        }
    },
    "parameters": {
        "family": {
            "name": "family", "in": "path", "required": true, "type": "string",
            "enum": ["BIN_REQUEST", "BIN_VISIT", "BIN_REPORT", "TOILET_INSPECTION", "SWEEPING_INSPECTION", "TASKFORCE_CASE"]
        },
        "recordId": {"name": "id", "in": "path", "required": true, "type": "string"}
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"},
                "cityId": {"type": "string"}
            }
        },
        "CreateGeoNodeRequest": {
            "type": "object",
            "required": ["cityId", "level", "name"],
            "properties": {
                "cityId": {"type": "string"},
                "level": {"type": "string", "enum": ["ZONE", "WARD", "AREA", "BEAT"]},
                "parentId": {"type": "string"},
                "name": {"type": "string"}
            }
        },
        "UpsertGrantRequest": {
            "type": "object",
            "required": ["userId", "module", "role"],
            "properties": {
                "userId": {"type": "string"},
                "cityId": {"type": "string"},
                "module": {"type": "string"},
                "role": {"type": "string"},
                "canWrite": {"type": "boolean"},
                "zoneIds": {"type": "array", "items": {"type": "string"}},
                "wardIds": {"type": "array", "items": {"type": "string"}}
            }
        },
        "IssueAttestationRequest": {
            "type": "object",
            "required": ["assetId", "latitude", "longitude"],
            "properties": {
                "assetId": {"type": "string"},
                "latitude": {"type": "number"},
                "longitude": {"type": "number"}
            }
        },
        "AssignAssetRequest": {
            "type": "object",
            "required": ["userId"],
            "properties": {"userId": {"type": "string"}}
        },
        "BinRequest": {
            "type": "object",
            "required": ["name", "zoneId", "wardId"],
            "properties": {
                "name": {"type": "string"},
                "latitude": {"type": "number"},
                "longitude": {"type": "number"},
                "zoneId": {"type": "string"},
                "wardId": {"type": "string"}
            }
        },
        "SubmitReviewRequest": {
            "type": "object",
            "required": ["assetId", "latitude", "longitude", "attestationToken"],
            "properties": {
                "assetId": {"type": "string"},
                "latitude": {"type": "number"},
                "longitude": {"type": "number"},
                "attestationToken": {"type": "string"},
                "details": {"type": "object"}
            }
        },
        "DecisionRequest": {
            "type": "object",
            "required": ["decision"],
            "properties": {
                "decision": {"type": "string", "enum": ["APPROVED", "REJECTED", "ACTION_REQUIRED"]},
                "remark": {"type": "string"}
            }
        },
        "ActionTakenRequest": {
            "type": "object",
            "required": ["remark", "photoUrl"],
            "properties": {
                "remark": {"type": "string"},
                "photoUrl": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "object"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}

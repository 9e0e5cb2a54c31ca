// Package docs registers the escrow API OpenAPI document served under /swagger/.
// Keep paths in step with the godoc annotations on the escrow HTTP handler.
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
        "/v1/campaigns": {
            "get": {
                "tags": ["escrow"],
                "summary": "List campaigns",
                "parameters": [
                    {"type": "integer", "name": "offset", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ListCampaignsResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            },
            "post": {
                "tags": ["escrow"],
                "summary": "Create campaign",
                "parameters": [
                    {"type": "string", "name": "X-User-Id", "in": "header", "required": true},
                    {"type": "string", "name": "Idempotency-Key", "in": "header"},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateCampaignRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/CampaignResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/v1/campaigns/{campaign_id}": {
            "get": {
                "tags": ["escrow"],
                "summary": "Get campaign",
                "parameters": [{"type": "integer", "name": "campaign_id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/CampaignResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/v1/campaigns/{campaign_id}/donations": {
            "post": {
                "tags": ["escrow"],
                "summary": "Donate to campaign",
                "parameters": [
                    {"type": "string", "name": "X-User-Id", "in": "header", "required": true},
                    {"type": "string", "name": "Idempotency-Key", "in": "header"},
                    {"type": "integer", "name": "campaign_id", "in": "path", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DonateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/DonationResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/v1/campaigns/{campaign_id}/requests": {
            "get": {
                "tags": ["escrow"],
                "summary": "List disbursement requests",
                "parameters": [
                    {"type": "integer", "name": "campaign_id", "in": "path", "required": true},
                    {"type": "integer", "name": "offset", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ListDisbursementRequestsResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            },
            "post": {
                "tags": ["escrow"],
                "summary": "Create disbursement request",
                "parameters": [
                    {"type": "string", "name": "X-User-Id", "in": "header", "required": true},
                    {"type": "string", "name": "Idempotency-Key", "in": "header"},
                    {"type": "integer", "name": "campaign_id", "in": "path", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateDisbursementRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/DisbursementRequestResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/v1/campaigns/{campaign_id}/requests/{request_index}": {
            "get": {
                "tags": ["escrow"],
                "summary": "Get disbursement request",
                "parameters": [
                    {"type": "integer", "name": "campaign_id", "in": "path", "required": true},
                    {"type": "integer", "name": "request_index", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/DisbursementRequestResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/v1/campaigns/{campaign_id}/requests/{request_index}/approvals": {
            "post": {
                "tags": ["escrow"],
                "summary": "Approve disbursement request",
                "parameters": [
                    {"type": "string", "name": "X-User-Id", "in": "header", "required": true},
                    {"type": "integer", "name": "campaign_id", "in": "path", "required": true},
                    {"type": "integer", "name": "request_index", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ApprovalResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/v1/campaigns/{campaign_id}/requests/{request_index}/finalize": {
            "post": {
                "tags": ["escrow"],
                "summary": "Finalize disbursement request",
                "parameters": [
                    {"type": "string", "name": "X-User-Id", "in": "header", "required": true},
                    {"type": "integer", "name": "campaign_id", "in": "path", "required": true},
                    {"type": "integer", "name": "request_index", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/FinalizeResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/v1/campaigns/{campaign_id}/contributors/{address}": {
            "get": {
                "tags": ["escrow"],
                "summary": "Check contributor membership",
                "parameters": [
                    {"type": "integer", "name": "campaign_id", "in": "path", "required": true},
                    {"type": "string", "name": "address", "in": "path", "required": true},
                    {"type": "integer", "name": "request_index", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/MembershipResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/v1/accounts/{address}/balance": {
            "get": {
                "tags": ["escrow"],
                "summary": "Get payout balance",
                "parameters": [{"type": "string", "name": "address", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/BalanceResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/v1/events": {
            "get": {
                "tags": ["escrow"],
                "summary": "List escrow events",
                "parameters": [
                    {"type": "integer", "name": "campaign_id", "in": "query"},
                    {"type": "string", "name": "actor", "in": "query"},
                    {"type": "string", "name": "event_type", "in": "query"},
                    {"type": "integer", "name": "after_sequence", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ListEventsResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "ErrorResponse": {"type": "object", "properties": {"code": {"type": "string"}, "message": {"type": "string"}}},
        "CreateCampaignRequest": {"type": "object", "properties": {"title": {"type": "string"}, "target": {"type": "string"}}},
        "CampaignResponse": {
            "type": "object",
            "properties": {
                "campaign_id": {"type": "integer"},
                "owner": {"type": "string"},
                "title": {"type": "string"},
                "target": {"type": "string"},
                "collected": {"type": "string"},
                "approvers_count": {"type": "integer"},
                "request_count": {"type": "integer"},
                "escrow_balance": {"type": "string"},
                "disbursed": {"type": "string"},
                "spendable": {"type": "string"},
                "funded_ratio": {"type": "string"},
                "created_at": {"type": "string"},
                "replayed": {"type": "boolean"}
            }
        },
        "ListCampaignsResponse": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/CampaignResponse"}},
                "total": {"type": "integer"},
                "offset": {"type": "integer"},
                "limit": {"type": "integer"}
            }
        },
        "DonateRequest": {"type": "object", "properties": {"amount": {"type": "string"}}},
        "DonationResponse": {
            "type": "object",
            "properties": {
                "campaign_id": {"type": "integer"},
                "contributor": {"type": "string"},
                "amount": {"type": "string"},
                "collected": {"type": "string"},
                "approvers_count": {"type": "integer"},
                "escrow_balance": {"type": "string"},
                "sequence": {"type": "integer"},
                "new_contributor": {"type": "boolean"},
                "replayed": {"type": "boolean"}
            }
        },
        "CreateDisbursementRequest": {
            "type": "object",
            "properties": {
                "description": {"type": "string"},
                "value": {"type": "string"},
                "recipient": {"type": "string"},
                "proof_ref": {"type": "string"}
            }
        },
        "DisbursementRequestResponse": {
            "type": "object",
            "properties": {
                "campaign_id": {"type": "integer"},
                "request_index": {"type": "integer"},
                "description": {"type": "string"},
                "value": {"type": "string"},
                "recipient": {"type": "string"},
                "proof_ref": {"type": "string"},
                "proof_cid": {"type": "string"},
                "state": {"type": "string"},
                "complete": {"type": "boolean"},
                "approval_count": {"type": "integer"},
                "approvers_count": {"type": "integer"},
                "quorum_reached": {"type": "boolean"},
                "created_at": {"type": "string"},
                "finalized_at": {"type": "string"},
                "replayed": {"type": "boolean"}
            }
        },
        "ListDisbursementRequestsResponse": {
            "type": "object",
            "properties": {
                "campaign_id": {"type": "integer"},
                "items": {"type": "array", "items": {"$ref": "#/definitions/DisbursementRequestResponse"}},
                "total": {"type": "integer"}
            }
        },
        "ApprovalResponse": {
            "type": "object",
            "properties": {
                "campaign_id": {"type": "integer"},
                "request_index": {"type": "integer"},
                "approval_count": {"type": "integer"},
                "approvers_count": {"type": "integer"},
                "quorum_reached": {"type": "boolean"}
            }
        },
        "FinalizeResponse": {
            "type": "object",
            "properties": {
                "request": {"$ref": "#/definitions/DisbursementRequestResponse"},
                "escrow_balance": {"type": "string"},
                "recipient_balance": {"type": "string"}
            }
        },
        "MembershipResponse": {
            "type": "object",
            "properties": {
                "campaign_id": {"type": "integer"},
                "identity": {"type": "string"},
                "is_contributor": {"type": "boolean"},
                "request_index": {"type": "integer"},
                "has_voted": {"type": "boolean"}
            }
        },
        "BalanceResponse": {"type": "object", "properties": {"holder": {"type": "string"}, "balance": {"type": "string"}}},
        "EventResponse": {
            "type": "object",
            "properties": {
                "sequence": {"type": "integer"},
                "event_id": {"type": "string"},
                "event_type": {"type": "string"},
                "operation": {"type": "string"},
                "campaign_id": {"type": "integer"},
                "request_index": {"type": "integer"},
                "actor": {"type": "string"},
                "counterparty": {"type": "string"},
                "amount": {"type": "string"},
                "occurred_at": {"type": "string"},
                "published": {"type": "boolean"}
            }
        },
        "ListEventsResponse": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/EventResponse"}},
                "last_sequence": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "crystalgive escrow API",
	Description:      "Campaign escrow with contributor-majority disbursement.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

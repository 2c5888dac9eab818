package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Report Compliance API",
        "description": "Tracks which schools submitted which division reports, on time or late.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Auth", "description": "Login and token lifecycle"},
        {"name": "Schools", "description": "School registry"},
        {"name": "Reports", "description": "Division report catalog"},
        {"name": "Submissions", "description": "Per school, per report submission records"},
        {"name": "Compliance", "description": "Status engine views"},
        {"name": "Automation", "description": "Overdue notices and schedule simulation"},
        {"name": "Exports", "description": "Asynchronous CSV and PDF exports"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Login",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "Tokens issued"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/schools": {
            "get": {
                "tags": ["Schools"],
                "summary": "List schools",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Schools"],
                "summary": "Create school",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SchoolRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/School"}},
                    "409": {"description": "Duplicate name"}
                }
            }
        },
        "/schools/{id}": {
            "get": {
                "tags": ["Schools"],
                "summary": "Get school",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            },
            "put": {
                "tags": ["Schools"],
                "summary": "Rename school",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SchoolRequest"}}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "tags": ["Schools"],
                "summary": "Delete school and its submissions",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/reports": {
            "get": {
                "tags": ["Reports"],
                "summary": "List reports",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "ids", "in": "query", "type": "string", "description": "Comma separated report ids"},
                    {"name": "sort_by", "in": "query", "type": "string"},
                    {"name": "sort_order", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Reports"],
                "summary": "Create report",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/Report"}}
                ],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/reports/{id}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Get report",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            },
            "put": {
                "tags": ["Reports"],
                "summary": "Update report",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/Report"}}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "tags": ["Reports"],
                "summary": "Delete report and its submissions",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/submissions": {
            "get": {
                "tags": ["Submissions"],
                "summary": "List submissions",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "schoolId", "in": "query", "type": "string"},
                    {"name": "reportId", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "put": {
                "tags": ["Submissions"],
                "summary": "Record a submission status",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/Submission"}}
                ],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Report not assigned"}}
            }
        },
        "/submissions/{schoolId}/{reportId}": {
            "delete": {
                "tags": ["Submissions"],
                "summary": "Clear a submission record",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "reportId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/compliance/overview": {
            "get": {
                "tags": ["Compliance"],
                "summary": "Division overview",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/compliance/matrix": {
            "get": {
                "tags": ["Compliance"],
                "summary": "School by report matrix",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "sort", "in": "query", "type": "string", "enum": ["schoolName", "onTimeRate", "nonComplianceRate", "overdueAverage"]},
                    {"name": "direction", "in": "query", "type": "string", "enum": ["ascending", "descending"]}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid sort"}}
            }
        },
        "/compliance/export.csv": {
            "get": {
                "tags": ["Compliance"],
                "summary": "Download the school metrics CSV",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv"],
                "responses": {"200": {"description": "CSV file"}}
            }
        },
        "/compliance/school": {
            "get": {
                "tags": ["Compliance"],
                "summary": "Dashboard for the caller's own school",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "No school linked"}}
            }
        },
        "/compliance/schools/{id}": {
            "get": {
                "tags": ["Compliance"],
                "summary": "Dashboard for one school",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            }
        },
        "/compliance/tagging": {
            "get": {
                "tags": ["Compliance"],
                "summary": "Tagging grid for one report",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "reportId", "in": "query", "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/automation/simulate": {
            "post": {
                "tags": ["Automation"],
                "summary": "Simulate the notice schedule",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/automation/overdue-notices/preview": {
            "post": {
                "tags": ["Automation"],
                "summary": "Preview overdue notices and issue a confirmation token",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/automation/overdue-notices/dispatch": {
            "post": {
                "tags": ["Automation"],
                "summary": "Dispatch confirmed overdue notices",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/NoticeDispatchRequest"}}
                ],
                "responses": {"202": {"description": "Queued"}, "400": {"description": "Missing confirmation"}}
            }
        },
        "/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Queue an export",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExportRequest"}}
                ],
                "responses": {"202": {"description": "Queued"}}
            }
        },
        "/exports/{id}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Export job status",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/export/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a finished export",
                "parameters": [{"name": "token", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "File"}, "403": {"description": "Invalid or expired token"}}
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "SchoolRequest": {
            "type": "object",
            "required": ["name"],
            "properties": {
                "name": {"type": "string"}
            }
        },
        "School": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"}
            }
        },
        "Report": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "title": {"type": "string"},
                "focal_person": {"type": "string"},
                "deadline": {"type": "string", "format": "date"},
                "mode_of_submission": {"type": "string"}
            }
        },
        "Submission": {
            "type": "object",
            "properties": {
                "school_id": {"type": "string"},
                "report_id": {"type": "string"},
                "status": {"type": "string", "enum": ["Submitted", "Not Applicable"]},
                "submission_date": {"type": "string", "format": "date"},
                "remarks": {"type": "string"}
            }
        },
        "NoticeDispatchRequest": {
            "type": "object",
            "required": ["confirmationToken"],
            "properties": {
                "confirmationToken": {"type": "string"},
                "confirm": {"type": "boolean"}
            }
        },
        "ExportRequest": {
            "type": "object",
            "required": ["format"],
            "properties": {
                "format": {"type": "string", "enum": ["csv", "pdf"]},
                "asOf": {"type": "string", "format": "date"}
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
                "status": {"type": "integer"}
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

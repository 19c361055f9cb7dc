package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "School Fee Ledger API",
        "description": "Multi-tenant school management API: subscription gating, fee ledger, promotion and graduation.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Authentication"},
        {"name": "Fees", "description": "Fee structures, records, payments, statements"},
        {"name": "Promotion", "description": "Student promotion and graduation"},
        {"name": "Academic", "description": "Sessions, terms, current period"},
        {"name": "Tenants", "description": "School lifecycle and licensing (superadmin)"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate and issue an access token",
                "responses": {
                    "200": {"description": "Token issued"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/fee-structure/setup": {
            "post": {
                "tags": ["Fees"],
                "summary": "Create or update a class fee structure and reconcile student records",
                "responses": {
                    "200": {"description": "Structure saved, records reconciled"},
                    "403": {"description": "Subscription gate denied the request"},
                    "404": {"description": "Class, term, or session not found"}
                }
            }
        },
        "/fee-structure": {
            "get": {
                "tags": ["Fees"],
                "summary": "List fee structures",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/fee-records": {
            "get": {
                "tags": ["Fees"],
                "summary": "List fee records with student identity",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/fee-records/generate-missing": {
            "post": {
                "tags": ["Fees"],
                "summary": "Create missing fee records for the current period",
                "responses": {
                    "200": {"description": "Run finished"},
                    "202": {"description": "Run queued"},
                    "400": {"description": "No current period configured"}
                }
            }
        },
        "/fee-records/repair-scholarships": {
            "post": {
                "tags": ["Fees"],
                "summary": "Zero expected amounts on scholarship students' fee records",
                "responses": {"200": {"description": "Repair finished"}}
            }
        },
        "/fee-records/{id}/payments": {
            "post": {
                "tags": ["Fees"],
                "summary": "Append a payment to a fee record",
                "responses": {
                    "200": {"description": "Updated record"},
                    "404": {"description": "Record not found"}
                }
            }
        },
        "/fee-records/{id}/clearance": {
            "patch": {
                "tags": ["Fees"],
                "summary": "Toggle the exam-clearance flag",
                "responses": {"204": {"description": "Updated"}}
            }
        },
        "/fee-records/export": {
            "post": {
                "tags": ["Fees"],
                "summary": "Render a class fee statement and return a signed download link",
                "responses": {
                    "200": {"description": "Signed link"},
                    "403": {"description": "Standard package or higher required"}
                }
            }
        },
        "/promotion/promote": {
            "post": {
                "tags": ["Promotion"],
                "summary": "Move a batch of students into a target class",
                "responses": {"200": {"description": "Per-student outcomes"}}
            }
        },
        "/promotion/graduate": {
            "post": {
                "tags": ["Promotion"],
                "summary": "Retire a batch of students to alumni status",
                "responses": {"200": {"description": "Per-student outcomes"}}
            }
        },
        "/promotion/history": {
            "get": {
                "tags": ["Promotion"],
                "summary": "List promotion and graduation events",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/sessions": {
            "get": {"tags": ["Academic"], "summary": "List academic sessions", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["Academic"], "summary": "Create an academic session", "responses": {"201": {"description": "Created"}}}
        },
        "/terms": {
            "get": {"tags": ["Academic"], "summary": "List terms", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["Academic"], "summary": "Create a term", "responses": {"201": {"description": "Created"}}}
        },
        "/terms/current": {
            "get": {"tags": ["Academic"], "summary": "Return the active session and term", "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["Academic"], "summary": "Set the active session and term", "responses": {"204": {"description": "Updated"}}}
        },
        "/tenants": {
            "get": {"tags": ["Tenants"], "summary": "List schools", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["Tenants"], "summary": "Onboard a new school", "responses": {"201": {"description": "Created"}}}
        },
        "/tenants/{id}": {
            "get": {"tags": ["Tenants"], "summary": "Fetch one school", "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["Tenants"], "summary": "Deactivate a school", "responses": {"204": {"description": "Deactivated"}}}
        },
        "/tenants/{id}/subscription": {
            "put": {"tags": ["Tenants"], "summary": "Extend a subscription", "responses": {"200": {"description": "Updated"}}}
        },
        "/tenants/{id}/tier": {
            "put": {"tags": ["Tenants"], "summary": "Switch the licensing package", "responses": {"200": {"description": "Updated"}}}
        }
    },
    "definitions": {
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
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
        "Envelope": {
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

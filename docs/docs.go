// Package docs registers the OpenAPI description served under /swagger/.
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
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "paths": {
        "/auth/signup": {"post": {"tags": ["Auth"], "summary": "User registration", "responses": {"201": {"description": "User successfully registered"}, "409": {"description": "Email already registered"}}}},
        "/auth/login": {"post": {"tags": ["Auth"], "summary": "User login", "responses": {"200": {"description": "Successfully authenticated"}, "401": {"description": "Invalid credentials"}}}},
        "/auth/refresh": {"post": {"tags": ["Auth"], "summary": "Refresh tokens", "responses": {"200": {"description": "New token pair"}, "401": {"description": "Refresh token revoked, expired or invalid"}}}},
        "/auth/logout": {"post": {"tags": ["Auth"], "summary": "User logout", "responses": {"200": {"description": "Successfully logged out"}}}},
        "/auth/google": {"post": {"tags": ["Auth"], "summary": "Google sign-in", "responses": {"501": {"description": "Not implemented"}}}},
        "/auth/me": {"get": {"tags": ["Auth"], "summary": "Get current user", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "Current user"}}}},
        "/user/profile": {"get": {"tags": ["User"], "summary": "Get profile", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "Profile"}}}},
        "/user/subscription": {"get": {"tags": ["User"], "summary": "Get subscription status", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "Entitlement"}}}},
        "/payment/create-payment-intent": {"post": {"tags": ["Payment"], "summary": "Create payment intent", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "Client secret"}}}},
        "/payment/verify-payment": {"post": {"tags": ["Payment"], "summary": "Verify payment", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "Granted pass"}}}},
        "/payment/subscribe": {"post": {"tags": ["Payment"], "summary": "Subscribe", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Subscription"}}}},
        "/payment/update-remaining": {"post": {"tags": ["Payment"], "summary": "Consume pass time", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "Entitlement after the update"}}}},
        "/payment/cancel": {"post": {"tags": ["Payment"], "summary": "Cancel subscription", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "Canceled subscription"}}}},
        "/payment/sync-customer": {"post": {"tags": ["Payment"], "summary": "Sync billing customer", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "Customer"}}}},
        "/premium": {"get": {"tags": ["Premium"], "summary": "Premium content", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "Access granted"}, "401": {"description": "Subscription expired"}, "403": {"description": "No active subscription"}}}},
        "/webhook": {"post": {"tags": ["Webhook"], "summary": "Billing webhook", "responses": {"200": {"description": "Event acknowledged"}, "400": {"description": "Signature rejected or body too large"}}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Paygate API",
	Description:      "Token sessions and Stripe-backed entitlements.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

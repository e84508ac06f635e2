package common

// AuthorizationHeaderName carries the bearer token on inbound requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix is the scheme expected in AuthorizationHeaderName.
const BearerPrefix = "bearer"

package common

// AuthorizationHeaderName is the HTTP header and gRPC metadata key that
// carries the access token on authenticated requests.
const AuthorizationHeaderName = "authorization"

// BearerScheme is the only authorization scheme accepted by the gateways.
const BearerScheme = "Bearer"

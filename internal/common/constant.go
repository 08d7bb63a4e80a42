package common

// AccessTokenHeaderName is the HTTP header carrying the bearer token when it
// is not sent in the body or the query string.
const AccessTokenHeaderName = "x-access-token"

// AccessTokenField is the body field and query parameter name of the token.
const AccessTokenField = "token"

// RequestIDHeaderName is echoed back on every HTTP response.
const RequestIDHeaderName = "X-Request-ID"

// Package auth implements account registration, login, token refresh and
// logout on top of the credential hasher and the token codec.
//
// Subpackages:
//
//   - auth/password   credential hashing (bcrypt, argon2id)
//   - auth/jwt        access and refresh token codec
//   - auth/authctx    request context propagation for verified claims
//   - auth/permission role to permission mapping and role resolution
//   - auth/revocation refresh-token denylist (redis, database, memory)
//
// The Service returns *errors.AppError values and never writes responses;
// the HTTP layer renders them.
//
//	svc := auth.NewService(users, hasher, codec, revoker,
//	    auth.WithEvents(publisher),
//	    auth.WithLogger(log),
//	)
//	res, err := svc.Login(ctx, email, password)
//
// Configuration composes the subpackage configs:
//
//	auth:
//	  jwt:
//	    access_secret: "..."   # JWT_SECRET
//	    refresh_secret: "..."  # JWT_REFRESH_SECRET
//	    access_ttl: 24h
//	    refresh_ttl: 7d
//	  password:
//	    algorithm: bcrypt
//	    bcrypt_cost: 12
//	  revocation:
//	    backend: redis
package auth

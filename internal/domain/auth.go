package domain

// Identity is the signed payload of a session token. It proves who the
// caller is at issuance time and is never used for authorization.
type Identity struct {
	SubjectID int64
	Email     string
	Role      Role
}

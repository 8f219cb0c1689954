package auth

type LoginStatus int

const (
	LoginCredentialsIncorrect LoginStatus = iota
	LoginConnected
	LoginNotVerified
)

type LoginResult struct {
	Status LoginStatus
	Token  string
}

type RegisterStatus int

const (
	RegisterInvalid RegisterStatus = iota
	RegisterConnected
	RegisterNotVerified
	RegisterEmailExists
)

type RegisterResult struct {
	Status RegisterStatus
	Token  string
}

type VerifyStatus int

const (
	VerifyInvalid VerifyStatus = iota
	VerifyExpired
	VerifyVerified
	VerifyConnected
)

type VerifyResult struct {
	Status VerifyStatus
	Token  string
}

type ForgotStatus int

const (
	ForgotSent ForgotStatus = iota
	ForgotConnected
	ForgotNotVerified
)

type ForgotResult struct {
	Status ForgotStatus
	Token  string
}

// ResetStatus is shared by ValidateResetKey and ChangePassword.
type ResetStatus int

const (
	ResetInvalid ResetStatus = iota
	ResetExpired
	ResetValid
	ResetPasswordInvalid
	ResetPasswordChanged
)

type RefreshStatus int

const (
	RefreshGuest RefreshStatus = iota
	RefreshConnected
	RefreshNotVerified
)

type RefreshResult struct {
	Status RefreshStatus
	Token  string
}

func (s LoginStatus) String() string {
	return [...]string{"credentials_incorrect", "connected", "not_verified"}[s]
}

func (s RegisterStatus) String() string {
	return [...]string{"invalid", "connected", "not_verified", "email_exists"}[s]
}

func (s VerifyStatus) String() string {
	return [...]string{"invalid", "expired", "verified", "connected"}[s]
}

func (s ForgotStatus) String() string {
	return [...]string{"sent", "connected", "not_verified"}[s]
}

func (s ResetStatus) String() string {
	return [...]string{"invalid", "expired", "valid", "password_invalid", "password_changed"}[s]
}

func (s RefreshStatus) String() string {
	return [...]string{"guest", "connected", "not_verified"}[s]
}

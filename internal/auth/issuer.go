package auth

import "time"

// Issuer builds access and refresh claims with configured lifetimes.
type Issuer struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
}

func (i Issuer) now() time.Time {
	if i.Now == nil {
		return time.Now().UTC()
	}
	return i.Now()
}

func (i Issuer) Access(userID int64, isAdmin bool) *AccessClaim {
	return NewAccessClaim(userID, isAdmin, i.now().Add(i.AccessTTL))
}

func (i Issuer) Refresh(userID int64) *RefreshClaim {
	return NewRefreshClaim(userID, i.now().Add(i.RefreshTTL))
}

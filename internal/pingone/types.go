package pingone

// envelope is the HAL-style response wrapper the management API uses for
// collection endpoints.
type envelope struct {
	Embedded embedded `json:"_embedded"`
}

type embedded struct {
	Users            []apiUser  `json:"users"`
	Groups           []apiGroup `json:"groups"`
	GroupMemberships []apiGroup `json:"groupMemberships"`
}

type apiUser struct {
	ID       string      `json:"id"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Enabled  bool        `json:"enabled"`
	Name     apiUserName `json:"name"`
}

type apiUserName struct {
	Given  string `json:"given"`
	Family string `json:"family"`
}

type apiGroup struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// createUserRequest is the identity-creation payload.
type createUserRequest struct {
	Email      string             `json:"email"`
	Username   string             `json:"username"`
	Name       apiUserName        `json:"name"`
	Population *apiPopulation     `json:"population,omitempty"`
	Password   *apiPassword       `json:"password,omitempty"`
	Lifecycle  *apiLifecycle      `json:"lifecycle,omitempty"`
}

type apiPopulation struct {
	ID string `json:"id"`
}

type apiPassword struct {
	Value       string `json:"value"`
	ForceChange bool   `json:"forceChange"`
}

type apiLifecycle struct {
	Status                  string `json:"status"`
	SuppressVerificationCode bool  `json:"suppressVerificationCode"`
}

type verifyUserRequest struct {
	VerificationCode string `json:"verificationCode"`
}

type provisionMembershipRequest struct {
	ID string `json:"id"`
}

// tokenResponse is the payload from the client-credentials token endpoint.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

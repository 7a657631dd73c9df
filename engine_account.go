package authcore

import "context"

// Register creates the single operator account and returns a session for it.
// The system accepts exactly one operator: once any operator row exists every
// further call fails with [ErrAdminAlreadyExists].
func (e *Engine) Register(ctx context.Context, username, plaintext, locale string) (*RegisterResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	operators, err := e.users.GetOperators(ctx)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	if len(operators) > 0 {
		return nil, ErrAdminAlreadyExists
	}

	username = normalizeUsername(username)
	if username == "" || plaintext == "" {
		return nil, ErrMissingCredentials
	}
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if len(plaintext) < e.config.Password.MinLength {
		return nil, ErrPasswordTooShort
	}

	existing, err := e.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	if existing != nil {
		return nil, ErrUserExists
	}

	if locale == "" {
		locale = defaultLocale
	}
	if !IsSupportedLocale(locale) {
		return nil, ErrInvalidLocale
	}

	hash, err := e.passwordHash.Hash(plaintext)
	if err != nil {
		return nil, err
	}

	user, err := e.users.Create(ctx, CreateUserInput{
		Username: username,
		Password: hash,
		Locale:   locale,
		Operator: true,
	})
	if err != nil || user == nil {
		e.metricInc(MetricRegisterFailure)
		e.emitAudit(ctx, AuditRegisterFailure, false, "", "", err, nil)
		return nil, ErrCreateFailed
	}

	sessionID, err := e.sessions.Issue(ctx, formatUserID(user.ID))
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricRegisterSuccess)
	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, AuditRegisterSuccess, true, formatUserID(user.ID), sessionID, nil, nil)

	return &RegisterResult{SessionID: sessionID, User: user.DTO()}, nil
}

// IsConfigured reports whether an operator account exists yet. The setup
// screen keys off this.
func (e *Engine) IsConfigured(ctx context.Context) (bool, error) {
	if !e.ready() {
		return false, ErrEngineNotReady
	}

	operators, err := e.users.GetOperators(ctx)
	if err != nil {
		return false, wrapStoreErr(err)
	}
	return len(operators) > 0, nil
}

// GetUser returns the response-safe projection of one account.
func (e *Engine) GetUser(ctx context.Context, userID int64) (*UserDTO, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	dto := user.DTO()
	return &dto, nil
}

// ChangePassword replaces the password after re-verifying the current one,
// then revokes every session of the user. The caller's own session dies too;
// the transport layer is expected to issue a fresh login.
func (e *Engine) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if e.config.DemoMode {
		return ErrNotAllowedInDemoMode
	}

	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return wrapStoreErr(err)
	}
	if user == nil {
		return ErrUserNotFound
	}

	ok, err := e.passwordHash.Verify(current, user.Password)
	if err != nil || !ok {
		e.metricInc(MetricPasswordChangeFailure)
		e.emitAudit(ctx, AuditPasswordChangeFailed, false, formatUserID(user.ID), "", ErrInvalidPassword, nil)
		return ErrInvalidPassword
	}
	if len(next) < e.config.Password.MinLength {
		return ErrPasswordTooShort
	}

	hash, err := e.passwordHash.Hash(next)
	if err != nil {
		return err
	}
	if _, err := e.users.Update(ctx, user.ID, UserUpdate{Password: &hash}); err != nil {
		return wrapStoreErr(err)
	}

	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, AuditPasswordChanged, true, formatUserID(user.ID), "", nil, nil)

	return e.revokeAllSessions(ctx, user.ID)
}

// ChangeUsername renames the account after re-verifying the password, then
// revokes every session of the user.
func (e *Engine) ChangeUsername(ctx context.Context, userID int64, plaintext, next string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if e.config.DemoMode {
		return ErrNotAllowedInDemoMode
	}

	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return wrapStoreErr(err)
	}
	if user == nil {
		return ErrUserNotFound
	}

	ok, err := e.passwordHash.Verify(plaintext, user.Password)
	if err != nil || !ok {
		e.metricInc(MetricUsernameChangeFailure)
		e.emitAudit(ctx, AuditUsernameChangeFailed, false, formatUserID(user.ID), "", ErrInvalidPassword, nil)
		return ErrInvalidPassword
	}

	next = normalizeUsername(next)
	if err := validateUsername(next); err != nil {
		return err
	}
	if next != user.Username {
		existing, err := e.users.GetByUsername(ctx, next)
		if err != nil {
			return wrapStoreErr(err)
		}
		if existing != nil {
			return ErrUserExists
		}
	}

	if _, err := e.users.Update(ctx, user.ID, UserUpdate{Username: &next}); err != nil {
		return wrapStoreErr(err)
	}

	e.metricInc(MetricUsernameChangeSuccess)
	e.emitAudit(ctx, AuditUsernameChanged, true, formatUserID(user.ID), "", nil, nil)

	return e.revokeAllSessions(ctx, user.ID)
}

// ChangeLocale switches the interface language. Sessions survive; a locale
// is not a credential.
func (e *Engine) ChangeLocale(ctx context.Context, userID int64, locale string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if !IsSupportedLocale(locale) {
		return ErrInvalidLocale
	}

	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return wrapStoreErr(err)
	}
	if user == nil {
		return ErrUserNotFound
	}

	if _, err := e.users.Update(ctx, user.ID, UserUpdate{Locale: &locale}); err != nil {
		return wrapStoreErr(err)
	}

	e.metricInc(MetricLocaleChanged)
	e.emitAudit(ctx, AuditLocaleChanged, true, formatUserID(user.ID), "", nil, func() map[string]string {
		return map[string]string{"locale": locale}
	})
	return nil
}

func (e *Engine) revokeAllSessions(ctx context.Context, userID int64) error {
	if err := e.sessions.RevokeAllForUser(ctx, formatUserID(userID)); err != nil {
		return err
	}
	e.metricInc(MetricSessionsBulkRevoked)
	return nil
}

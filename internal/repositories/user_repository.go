package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	intconfig "rentcore/internal/config"
	"rentcore/internal/domain"
)

// UserRepository reads and writes the payment columns of users.
type UserRepository struct {
	DB *sql.DB
}

// PaymentProfile is what the payment flow needs to know about a user.
type PaymentProfile struct {
	UserID              int64
	Email               string
	ProcessorCustomerID string
	PayoutAccountID     string
}

func (r UserRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

func (r UserRepository) PaymentProfile(ctx context.Context, userID int64) (PaymentProfile, error) {
	p := PaymentProfile{UserID: userID}
	err := r.db().QueryRowContext(ctx, `
		SELECT email, COALESCE(processor_customer_id, ''), COALESCE(payout_account_id, '')
		FROM users WHERE id = ? LIMIT 1`, userID,
	).Scan(&p.Email, &p.ProcessorCustomerID, &p.PayoutAccountID)
	if errors.Is(err, sql.ErrNoRows) {
		return PaymentProfile{}, domain.NotFoundError{Resource: "user", Err: err}
	}
	if err != nil {
		return PaymentProfile{}, fmt.Errorf("select user payment profile: %w", err)
	}
	return p, nil
}

// SetProcessorCustomerID stores customerID only if the user has none yet and
// returns whichever id ended up stored.
func (r UserRepository) SetProcessorCustomerID(ctx context.Context, userID int64, customerID string) (string, error) {
	res, err := r.db().ExecContext(ctx,
		`UPDATE users SET processor_customer_id = ? WHERE id = ? AND processor_customer_id IS NULL`,
		customerID, userID,
	)
	if err != nil {
		return "", fmt.Errorf("set processor customer: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return customerID, nil
	}
	p, err := r.PaymentProfile(ctx, userID)
	if err != nil {
		return "", err
	}
	if p.ProcessorCustomerID == "" {
		return "", domain.InternalError{
			Msg: "payment profile could not be saved",
			Err: fmt.Errorf("processor customer for user %d was not stored", userID),
		}
	}
	return p.ProcessorCustomerID, nil
}

// PayoutAccountFor returns the host's connected payout account, if any.
func (r UserRepository) PayoutAccountFor(ctx context.Context, hostID int64) (string, bool, error) {
	p, err := r.PaymentProfile(ctx, hostID)
	if domain.IsNotFound(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return p.PayoutAccountID, p.PayoutAccountID != "", nil
}

package pgstore

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/sudo-init-do/fintrade/internal/ledger"
)

const userColumns = `id::text, username, email, password, first_name, last_name, phone, role,
        is_kyc_verified, two_factor_enabled, created_at`

func scanUser(row pgx.Row) (*ledger.User, error) {
	var u ledger.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.Phone, &u.Role, &u.IsKYCVerified, &u.TwoFactorEnabled, &u.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (t *pgTx) CreateUser(ctx context.Context, u *ledger.User) error {
	_, err := t.tx.Exec(ctx, `
        INSERT INTO users (id, username, email, password, first_name, last_name, phone, role, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Phone, u.Role, u.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ledger.ErrDuplicateRegistration
	}
	return err
}

func (t *pgTx) UserByID(ctx context.Context, id string) (*ledger.User, error) {
	if !validID(id) {
		return nil, ledger.ErrNotFound
	}
	return scanUser(t.tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (t *pgTx) UserByEmail(ctx context.Context, email string) (*ledger.User, error) {
	return scanUser(t.tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
}

func (t *pgTx) UserByUsername(ctx context.Context, username string) (*ledger.User, error) {
	return scanUser(t.tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

func (t *pgTx) SetUserKYCVerified(ctx context.Context, userID string, verified bool) error {
	if !validID(userID) {
		return ledger.ErrNotFound
	}
	return t.execOne(ctx, `UPDATE users SET is_kyc_verified = $1 WHERE id = $2`, verified, userID)
}

func (t *pgTx) SetUserRole(ctx context.Context, userID, role string) error {
	if !validID(userID) {
		return ledger.ErrNotFound
	}
	return t.execOne(ctx, `UPDATE users SET role = $1 WHERE id = $2`, role, userID)
}

func (t *pgTx) execOne(ctx context.Context, sql string, args ...any) error {
	tag, err := t.tx.Exec(ctx, sql, args...)
	if err != nil {
		return notFound(err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

const walletColumns = `id::text, user_id::text, currency, balance::text, created_at, updated_at`

func scanWallet(row pgx.Row) (*ledger.Wallet, error) {
	var (
		w        ledger.Wallet
		currency string
		balance  string
	)
	if err := row.Scan(&w.ID, &w.UserID, &currency, &balance, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	w.Currency = ledger.Currency(currency)
	b, err := parseDecimal(balance)
	if err != nil {
		return nil, err
	}
	w.Balance = b
	return &w, nil
}

func (t *pgTx) WalletForUpdate(ctx context.Context, userID string, c ledger.Currency) (*ledger.Wallet, error) {
	return scanWallet(t.tx.QueryRow(ctx, `
        SELECT `+walletColumns+` FROM wallets
        WHERE user_id = $1 AND currency = $2
        FOR UPDATE`, userID, string(c)))
}

// CreateWallet inserts the wallet or, when it already exists, locks and
// returns the stored row.
func (t *pgTx) CreateWallet(ctx context.Context, w *ledger.Wallet) error {
	stored, err := scanWallet(t.tx.QueryRow(ctx, `
        INSERT INTO wallets (id, user_id, currency, balance, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (user_id, currency) DO UPDATE SET updated_at = wallets.updated_at
        RETURNING `+walletColumns,
		w.ID, w.UserID, string(w.Currency), w.Balance.String(), w.CreatedAt, w.UpdatedAt,
	))
	if err != nil {
		return err
	}
	*w = *stored
	return nil
}

func (t *pgTx) UpdateWalletBalance(ctx context.Context, w *ledger.Wallet) error {
	return t.execOne(ctx, `UPDATE wallets SET balance = $1, updated_at = $2 WHERE id = $3`,
		w.Balance.String(), w.UpdatedAt, w.ID)
}

func (t *pgTx) ListWallets(ctx context.Context, userID string) ([]ledger.Wallet, error) {
	return t.queryWallets(ctx, `
        SELECT `+walletColumns+` FROM wallets WHERE user_id = $1
        ORDER BY array_position(ARRAY['BTC','ETH','USDT','INR','USD'], currency)`, userID)
}

func (t *pgTx) AllWallets(ctx context.Context, limit int) ([]ledger.Wallet, error) {
	return t.queryWallets(ctx, `SELECT `+walletColumns+` FROM wallets ORDER BY updated_at DESC`+limitClause(limit))
}

func (t *pgTx) queryWallets(ctx context.Context, sql string, args ...any) ([]ledger.Wallet, error) {
	rows, err := t.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}

const transactionColumns = `id::text, user_id::text, transaction_type, from_currency, to_currency,
        amount::text, rate::text, fee::text, status, recipient_address, correlation_id::text, note,
        created_at, completed_at`

func (t *pgTx) InsertTransaction(ctx context.Context, rec *ledger.Transaction) error {
	_, err := t.tx.Exec(ctx, `
        INSERT INTO transactions (id, user_id, transaction_type, from_currency, to_currency,
            amount, rate, fee, status, recipient_address, correlation_id, note, created_at, completed_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		rec.ID, rec.UserID, string(rec.Type), string(rec.FromCurrency), string(rec.ToCurrency),
		rec.Amount.String(), rec.Rate.String(), rec.Fee.String(), string(rec.Status),
		rec.RecipientAddress, rec.CorrelationID, rec.Note, rec.CreatedAt, rec.CompletedAt,
	)
	return err
}

func (t *pgTx) ListTransactions(ctx context.Context, f ledger.TransactionFilter) ([]ledger.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID != "" {
		args = append(args, f.UserID)
		where = append(where, "user_id = $"+strconv.Itoa(len(args)))
	}
	if len(f.Types) > 0 {
		types := make([]string, len(f.Types))
		for i, typ := range f.Types {
			types[i] = string(typ)
		}
		args = append(args, types)
		where = append(where, "transaction_type = ANY($"+strconv.Itoa(len(args))+")")
	}

	sql := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	sql += ` ORDER BY created_at DESC` + limitClause(f.Limit)

	rows, err := t.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Transaction
	for rows.Next() {
		var (
			rec                   ledger.Transaction
			typ, from, to, status string
			amount, rate, fee     string
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &typ, &from, &to, &amount, &rate, &fee, &status,
			&rec.RecipientAddress, &rec.CorrelationID, &rec.Note, &rec.CreatedAt, &rec.CompletedAt); err != nil {
			return nil, err
		}
		rec.Type = ledger.TxType(typ)
		rec.FromCurrency = ledger.Currency(from)
		rec.ToCurrency = ledger.Currency(to)
		rec.Status = ledger.TxStatus(status)
		if rec.Amount, err = parseDecimal(amount); err != nil {
			return nil, err
		}
		if rec.Rate, err = parseDecimal(rate); err != nil {
			return nil, err
		}
		if rec.Fee, err = parseDecimal(fee); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

const kycColumns = `id::text, user_id::text, document_type, document_number, status, reviewed_by,
        rejection_reason, uploaded_at, verified_at`

func scanKYC(row pgx.Row) (*ledger.KYCDocument, error) {
	var (
		d      ledger.KYCDocument
		status string
	)
	if err := row.Scan(&d.ID, &d.UserID, &d.DocumentType, &d.DocumentNumber, &status,
		&d.ReviewedBy, &d.RejectionReason, &d.UploadedAt, &d.VerifiedAt); err != nil {
		return nil, notFound(err)
	}
	d.Status = ledger.KYCStatus(status)
	return &d, nil
}

func (t *pgTx) InsertKYCDocument(ctx context.Context, d *ledger.KYCDocument) error {
	_, err := t.tx.Exec(ctx, `
        INSERT INTO kyc_documents (id, user_id, document_type, document_number, status, uploaded_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		d.ID, d.UserID, d.DocumentType, d.DocumentNumber, string(d.Status), d.UploadedAt,
	)
	return err
}

func (t *pgTx) KYCDocumentForUpdate(ctx context.Context, id string) (*ledger.KYCDocument, error) {
	if !validID(id) {
		return nil, ledger.ErrNotFound
	}
	return scanKYC(t.tx.QueryRow(ctx, `SELECT `+kycColumns+` FROM kyc_documents WHERE id = $1 FOR UPDATE`, id))
}

func (t *pgTx) UpdateKYCDocument(ctx context.Context, d *ledger.KYCDocument) error {
	return t.execOne(ctx, `
        UPDATE kyc_documents
        SET status = $1, reviewed_by = $2, rejection_reason = $3, verified_at = $4
        WHERE id = $5`,
		string(d.Status), d.ReviewedBy, d.RejectionReason, d.VerifiedAt, d.ID)
}

func (t *pgTx) ListKYCDocuments(ctx context.Context, f ledger.KYCFilter) ([]ledger.KYCDocument, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID != "" {
		args = append(args, f.UserID)
		where = append(where, "user_id = $"+strconv.Itoa(len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, "status = $"+strconv.Itoa(len(args)))
	}

	sql := `SELECT ` + kycColumns + ` FROM kyc_documents`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	sql += ` ORDER BY uploaded_at DESC` + limitClause(f.Limit)

	rows, err := t.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.KYCDocument
	for rows.Next() {
		d, err := scanKYC(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (t *pgTx) Stats(ctx context.Context) (ledger.Stats, error) {
	var st ledger.Stats
	err := t.tx.QueryRow(ctx, `
        SELECT
            (SELECT COUNT(*) FROM users),
            (SELECT COUNT(*) FROM wallets),
            (SELECT COUNT(*) FROM transactions),
            (SELECT COUNT(*) FROM kyc_documents WHERE status = 'pending')`,
	).Scan(&st.Users, &st.Wallets, &st.Transactions, &st.PendingKYC)
	return st, err
}

func limitClause(limit int) string {
	if limit <= 0 {
		return ""
	}
	return fmt.Sprintf(" LIMIT %d", limit)
}

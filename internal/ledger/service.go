package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Service implements wallet conversion, payments, KYC and portfolio
// valuation on top of a Store and a PriceFeed.
type Service struct {
	store      Store
	prices     PriceFeed
	log        *zap.Logger
	observers  []Observer
	now        func() time.Time
	bcryptCost int
}

type Option func(*Service)

// WithObserver registers o to be notified after each committed operation.
func WithObserver(o Observer) Option {
	return func(s *Service) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithBcryptCost overrides the password hashing cost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.bcryptCost = cost }
}

func NewService(store Store, prices PriceFeed, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		store:      store,
		prices:     prices,
		log:        log,
		now:        time.Now,
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Conversion is the record written by Convert and the amount credited to
// the destination wallet.
type Conversion struct {
	Transaction Transaction     `json:"transaction"`
	Credited    decimal.Decimal `json:"credited_amount"`
}

// Convert moves amount out of the user's from wallet and credits the
// converted value to the to wallet, recording one completed transaction.
func (s *Service) Convert(ctx context.Context, userID string, from, to Currency, amount decimal.Decimal, txType TxType) (*Conversion, error) {
	if !validAmount(amount) {
		return nil, ErrInvalidAmount
	}
	if !from.Valid() || !to.Valid() {
		return nil, ErrUnsupportedCurrency
	}
	if from == to {
		return nil, ErrSameCurrency
	}
	if txType == "" {
		txType = TxConvert
	}
	if txType != TxBuy && txType != TxSell && txType != TxConvert {
		return nil, ErrInvalidTxType
	}

	var (
		record   Transaction
		credited decimal.Decimal
	)
	err := s.store.Update(ctx, func(tx Tx) error {
		now := s.now().UTC()

		// Lock both wallets in currency order
		locked := make(map[Currency]*Wallet, 2)
		for _, c := range sortedCurrencies(from, to) {
			w, err := lockWallet(ctx, tx, userID, c)
			if err != nil {
				return err
			}
			locked[c] = w
		}

		src := locked[from]
		if src == nil || src.Balance.LessThan(amount) {
			return ErrInsufficientBalance
		}

		converted, err := s.prices.ConvertCurrency(ctx, amount, from, to)
		if err != nil {
			s.log.Warn("conversion rate unavailable",
				zap.String("from", string(from)),
				zap.String("to", string(to)),
				zap.Error(err),
			)
			return ErrPriceUnavailable
		}
		converted = RoundMoney(converted)
		if !converted.IsPositive() {
			return ErrPriceUnavailable
		}

		src.Balance = src.Balance.Sub(amount)
		src.UpdatedAt = now
		if err := tx.UpdateWalletBalance(ctx, src); err != nil {
			return err
		}

		dst := locked[to]
		if dst == nil {
			if dst, err = s.createWallet(ctx, tx, userID, to, now); err != nil {
				return err
			}
		}
		dst.Balance = dst.Balance.Add(converted)
		dst.UpdatedAt = now
		credited = converted
		if err := tx.UpdateWalletBalance(ctx, dst); err != nil {
			return err
		}

		completed := now
		record = Transaction{
			ID:            uuid.NewString(),
			UserID:        userID,
			Type:          txType,
			FromCurrency:  from,
			ToCurrency:    to,
			Amount:        amount,
			Rate:          converted.Div(amount).Round(RatePlaces),
			Fee:           ConvertFee(amount),
			Status:        StatusCompleted,
			CorrelationID: uuid.NewString(),
			CreatedAt:     now,
			CompletedAt:   &completed,
		}
		return tx.InsertTransaction(ctx, &record)
	})
	if err != nil {
		return nil, s.fail("convert", err)
	}

	s.log.Info("conversion completed",
		zap.String("user_id", userID),
		zap.String("transaction_id", record.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("amount", amount.String()),
	)
	s.notify(ctx, Event{Kind: EventConverted, At: record.CreatedAt, UserID: userID, Transactions: []Transaction{record}})
	return &Conversion{Transaction: record, Credited: credited}, nil
}

// Payment is the send/receive pair written by Pay.
type Payment struct {
	Send    Transaction `json:"send"`
	Receive Transaction `json:"receive"`
}

// Pay transfers amount from the sender to the user registered under
// recipientEmail. The sender is debited amount plus the payment fee; the
// recipient is credited amount.
func (s *Service) Pay(ctx context.Context, senderID, recipientEmail string, currency Currency, amount decimal.Decimal, note string) (*Payment, error) {
	if !validAmount(amount) {
		return nil, ErrInvalidAmount
	}
	if !currency.Valid() {
		return nil, ErrUnsupportedCurrency
	}
	if utf8.RuneCountInString(note) > MaxNoteLength {
		return nil, ErrNoteTooLong
	}
	recipientEmail = normalizeEmail(recipientEmail)

	var (
		payment           Payment
		sender, recipient *User
	)
	err := s.store.Update(ctx, func(tx Tx) error {
		now := s.now().UTC()

		var err error
		recipient, err = tx.UserByEmail(ctx, recipientEmail)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}

		// Wallet rows are always locked in user id order
		var senderWallet, recipientWallet *Wallet
		if recipient == nil || recipient.ID == senderID {
			if senderWallet, err = lockWallet(ctx, tx, senderID, currency); err != nil {
				return err
			}
		} else {
			owners := []string{senderID, recipient.ID}
			sort.Strings(owners)
			for _, owner := range owners {
				w, err := lockWallet(ctx, tx, owner, currency)
				if err != nil {
					return err
				}
				if owner == senderID {
					senderWallet = w
				} else {
					recipientWallet = w
				}
			}
		}

		if senderWallet == nil {
			return ErrInsufficientBalance
		}
		if recipient == nil {
			return ErrRecipientNotFound
		}
		if recipient.ID == senderID {
			return ErrSelfPaymentRejected
		}

		fee := PaymentFee(amount)
		total := amount.Add(fee)
		if senderWallet.Balance.LessThan(total) {
			return ErrInsufficientBalance
		}

		senderWallet.Balance = senderWallet.Balance.Sub(total)
		senderWallet.UpdatedAt = now
		if err := tx.UpdateWalletBalance(ctx, senderWallet); err != nil {
			return err
		}

		if recipientWallet == nil {
			if recipientWallet, err = s.createWallet(ctx, tx, recipient.ID, currency, now); err != nil {
				return err
			}
		}
		recipientWallet.Balance = recipientWallet.Balance.Add(amount)
		recipientWallet.UpdatedAt = now
		if err := tx.UpdateWalletBalance(ctx, recipientWallet); err != nil {
			return err
		}

		if sender, err = tx.UserByID(ctx, senderID); err != nil {
			return err
		}

		correlationID := uuid.NewString()
		completed := now
		payment.Send = Transaction{
			ID:               uuid.NewString(),
			UserID:           senderID,
			Type:             TxSend,
			FromCurrency:     currency,
			ToCurrency:       currency,
			Amount:           amount,
			Rate:             decimal.NewFromInt(1),
			Fee:              fee,
			Status:           StatusCompleted,
			RecipientAddress: recipient.Email,
			CorrelationID:    correlationID,
			Note:             note,
			CreatedAt:        now,
			CompletedAt:      &completed,
		}
		payment.Receive = Transaction{
			ID:            uuid.NewString(),
			UserID:        recipient.ID,
			Type:          TxReceive,
			FromCurrency:  currency,
			ToCurrency:    currency,
			Amount:        amount,
			Rate:          decimal.NewFromInt(1),
			Fee:           decimal.Zero,
			Status:        StatusCompleted,
			CorrelationID: correlationID,
			Note:          note,
			CreatedAt:     now,
			CompletedAt:   &completed,
		}
		if err := tx.InsertTransaction(ctx, &payment.Send); err != nil {
			return err
		}
		return tx.InsertTransaction(ctx, &payment.Receive)
	})
	if err != nil {
		return nil, s.fail("pay", err)
	}

	s.log.Info("payment completed",
		zap.String("sender_id", senderID),
		zap.String("recipient_id", recipient.ID),
		zap.String("correlation_id", payment.Send.CorrelationID),
		zap.String("currency", string(currency)),
		zap.String("amount", amount.String()),
	)
	s.notify(ctx, Event{
		Kind:         EventPaid,
		At:           payment.Send.CreatedAt,
		UserID:       senderID,
		User:         sender,
		Counterparty: recipient,
		Transactions: []Transaction{payment.Send, payment.Receive},
	})
	return &payment, nil
}

// SubmitKYC records a pending identity document for the user.
func (s *Service) SubmitKYC(ctx context.Context, userID, docType, docNumber string) (*KYCDocument, error) {
	docType = strings.ToLower(strings.TrimSpace(docType))
	docNumber = strings.TrimSpace(docNumber)
	if !validDocumentType(docType) || docNumber == "" || len(docNumber) > 50 {
		return nil, ErrInvalidDocument
	}

	var doc KYCDocument
	err := s.store.Update(ctx, func(tx Tx) error {
		approved, err := tx.ListKYCDocuments(ctx, KYCFilter{UserID: userID, Status: KYCApproved, Limit: 1})
		if err != nil {
			return err
		}
		if len(approved) > 0 {
			return ErrAlreadyApproved
		}
		doc = KYCDocument{
			ID:             uuid.NewString(),
			UserID:         userID,
			DocumentType:   docType,
			DocumentNumber: docNumber,
			Status:         KYCPending,
			UploadedAt:     s.now().UTC(),
		}
		return tx.InsertKYCDocument(ctx, &doc)
	})
	if err != nil {
		return nil, s.fail("submit kyc", err)
	}

	s.log.Info("kyc submitted", zap.String("user_id", userID), zap.String("document_id", doc.ID))
	s.notify(ctx, Event{Kind: EventKYCSubmitted, At: doc.UploadedAt, UserID: userID, Document: &doc})
	return &doc, nil
}

// ReviewKYC approves or rejects a pending document. Approval marks the
// owner as KYC verified.
func (s *Service) ReviewKYC(ctx context.Context, documentID, reviewerID string, approve bool, reason string) (*KYCDocument, error) {
	var (
		doc   *KYCDocument
		owner *User
	)
	err := s.store.Update(ctx, func(tx Tx) error {
		var err error
		doc, err = tx.KYCDocumentForUpdate(ctx, documentID)
		if err != nil {
			return err
		}
		if doc.Status != KYCPending {
			return ErrKYCNotPending
		}

		doc.ReviewedBy = reviewerID
		if approve {
			verified := s.now().UTC()
			doc.Status = KYCApproved
			doc.VerifiedAt = &verified
		} else {
			doc.Status = KYCRejected
			doc.RejectionReason = strings.TrimSpace(reason)
		}
		if err := tx.UpdateKYCDocument(ctx, doc); err != nil {
			return err
		}
		if approve {
			if err := tx.SetUserKYCVerified(ctx, doc.UserID, true); err != nil {
				return err
			}
		}
		owner, err = tx.UserByID(ctx, doc.UserID)
		return err
	})
	if err != nil {
		return nil, s.fail("review kyc", err)
	}

	s.log.Info("kyc reviewed",
		zap.String("document_id", doc.ID),
		zap.String("reviewer_id", reviewerID),
		zap.String("status", string(doc.Status)),
	)
	s.notify(ctx, Event{Kind: EventKYCReviewed, At: s.now().UTC(), UserID: doc.UserID, User: owner, Document: doc})
	return doc, nil
}

// PortfolioValue sums the user's balances valued in INR.
func (s *Service) PortfolioValue(ctx context.Context, userID string) (decimal.Decimal, error) {
	wallets, err := s.Wallets(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return s.valueOf(ctx, wallets), nil
}

func (s *Service) valueOf(ctx context.Context, wallets []Wallet) decimal.Decimal {
	total := decimal.Zero
	for _, w := range wallets {
		if w.Balance.IsZero() {
			continue
		}
		total = total.Add(w.Balance.Mul(s.prices.UnitPriceINR(ctx, w.Currency)))
	}
	return RoundMoney(total)
}

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

// Register creates the user together with one wallet per supported
// currency. The INR wallet receives the starting grant.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)
	if n := utf8.RuneCountInString(in.Username); n < 3 || n > 20 {
		return nil, fmt.Errorf("%w: username must be 3-20 characters", ErrInvalidRegistration)
	}
	if !strings.Contains(in.Email, "@") {
		return nil, fmt.Errorf("%w: invalid email", ErrInvalidRegistration)
	}
	if len(in.Password) < 6 {
		return nil, fmt.Errorf("%w: password must be at least 6 characters", ErrInvalidRegistration)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, s.fail("register", err)
	}

	var user User
	err = s.store.Update(ctx, func(tx Tx) error {
		now := s.now().UTC()
		if _, err := tx.UserByUsername(ctx, in.Username); err == nil {
			return ErrDuplicateRegistration
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		if _, err := tx.UserByEmail(ctx, in.Email); err == nil {
			return ErrDuplicateRegistration
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}

		user = User{
			ID:           uuid.NewString(),
			Username:     in.Username,
			Email:        in.Email,
			PasswordHash: string(hashed),
			FirstName:    strings.TrimSpace(in.FirstName),
			LastName:     strings.TrimSpace(in.LastName),
			Phone:        strings.TrimSpace(in.Phone),
			Role:         RoleUser,
			CreatedAt:    now,
		}
		if err := tx.CreateUser(ctx, &user); err != nil {
			return err
		}

		// Seed one wallet per currency
		for _, c := range SupportedCurrencies {
			w := &Wallet{ID: uuid.NewString(), UserID: user.ID, Currency: c, Balance: decimal.Zero, CreatedAt: now, UpdatedAt: now}
			if c == INR {
				w.Balance = StartingGrant
			}
			if err := tx.CreateWallet(ctx, w); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, s.fail("register", err)
	}

	s.log.Info("user registered", zap.String("user_id", user.ID), zap.String("username", user.Username))
	s.notify(ctx, Event{Kind: EventRegistered, At: user.CreatedAt, UserID: user.ID, User: &user})
	return &user, nil
}

// Authenticate checks a username or email and password pair.
func (s *Service) Authenticate(ctx context.Context, login, password string) (*User, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	var user *User
	err := s.store.View(ctx, func(tx Tx) error {
		var err error
		user, err = tx.UserByUsername(ctx, login)
		if errors.Is(err, ErrNotFound) {
			user, err = tx.UserByEmail(ctx, normalizeEmail(login))
		}
		if errors.Is(err, ErrNotFound) {
			return ErrInvalidCredentials
		}
		return err
	})
	if err != nil {
		return nil, s.fail("authenticate", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// PromoteAdmin grants the admin role to the user registered under email.
func (s *Service) PromoteAdmin(ctx context.Context, email string) (*User, error) {
	var user *User
	err := s.store.Update(ctx, func(tx Tx) error {
		var err error
		if user, err = tx.UserByEmail(ctx, normalizeEmail(email)); err != nil {
			return err
		}
		if user.Role == RoleAdmin {
			return nil
		}
		user.Role = RoleAdmin
		return tx.SetUserRole(ctx, user.ID, RoleAdmin)
	})
	if err != nil {
		return nil, s.fail("promote admin", err)
	}
	return user, nil
}

// fail passes ledger errors through and collapses everything else into
// ErrStoreFailure after logging the cause.
func (s *Service) fail(op string, err error) error {
	if IsDomainError(err) {
		return err
	}
	s.log.Error("ledger operation failed", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%s: %w", op, ErrStoreFailure)
}

func (s *Service) notify(ctx context.Context, e Event) {
	for _, o := range s.observers {
		if err := o.Observe(ctx, e); err != nil {
			s.log.Warn("event observer failed", zap.String("kind", string(e.Kind)), zap.Error(err))
		}
	}
}

func (s *Service) createWallet(ctx context.Context, tx Tx, userID string, c Currency, now time.Time) (*Wallet, error) {
	w := &Wallet{ID: uuid.NewString(), UserID: userID, Currency: c, Balance: decimal.Zero, CreatedAt: now, UpdatedAt: now}
	if err := tx.CreateWallet(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// lockWallet returns nil without error when the wallet does not exist.
func lockWallet(ctx context.Context, tx Tx, userID string, c Currency) (*Wallet, error) {
	w, err := tx.WalletForUpdate(ctx, userID, c)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return w, err
}

func sortedCurrencies(a, b Currency) []Currency {
	if b < a {
		return []Currency{b, a}
	}
	return []Currency{a, b}
}

func validDocumentType(t string) bool {
	for _, d := range DocumentTypes {
		if d == t {
			return true
		}
	}
	return false
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mkrishnan/libraryops/internal/domain"
)

// Postgres is the pgx-backed Store. Atomic units map to database
// transactions with row locks on the records under mutation.
type Postgres struct {
	db *pgxpool.Pool
}

// NewPostgres connects, pings, and applies the schema.
func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	p := &Postgres{db: pool}
	if err := p.applySchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) Close() {
	p.db.Close()
}

// Pool exposes the underlying pool for tooling (seeder bulk loads).
func (p *Postgres) Pool() *pgxpool.Pool { return p.db }

func (p *Postgres) applySchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			name TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS memberships (
			membership_no BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			start_date DATE NOT NULL,
			end_date DATE NOT NULL,
			status TEXT NOT NULL DEFAULT 'active'
		)`,
		`CREATE TABLE IF NOT EXISTS items (
			id BIGSERIAL PRIMARY KEY,
			kind TEXT NOT NULL,
			title TEXT NOT NULL,
			author TEXT NOT NULL,
			available BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE TABLE IF NOT EXISTS loans (
			id BIGSERIAL PRIMARY KEY,
			membership_no BIGINT NOT NULL REFERENCES memberships(membership_no),
			item_id BIGINT NOT NULL REFERENCES items(id),
			issue_date DATE NOT NULL,
			due_date DATE NOT NULL,
			actual_return_date DATE,
			fine BIGINT NOT NULL DEFAULT 0,
			fine_paid BOOLEAN NOT NULL DEFAULT FALSE,
			remarks TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_loans_open_due
			ON loans (due_date) WHERE actual_return_date IS NULL`,
	}
	for _, stmt := range stmts {
		if _, err := p.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// --- catalog ---

func (p *Postgres) CreateItem(ctx context.Context, item *domain.Item) (int64, error) {
	var id int64
	err := p.db.QueryRow(ctx,
		"INSERT INTO items (kind, title, author, available) VALUES ($1, $2, $3, TRUE) RETURNING id",
		item.Kind, item.Title, item.Author).Scan(&id)
	return id, err
}

func (p *Postgres) Item(ctx context.Context, id int64) (*domain.Item, error) {
	return scanItem(p.db.QueryRow(ctx,
		"SELECT id, kind, title, author, available FROM items WHERE id = $1", id))
}

func (p *Postgres) SearchAvailableItems(ctx context.Context, title string) ([]domain.Item, error) {
	rows, err := p.db.Query(ctx,
		"SELECT id, kind, title, author, available FROM items WHERE available AND title ILIKE '%' || $1 || '%' ORDER BY id",
		title)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []domain.Item{}
	for rows.Next() {
		var it domain.Item
		if err := rows.Scan(&it.ID, &it.Kind, &it.Title, &it.Author, &it.Available); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// --- memberships ---

func (p *Postgres) CreateMembership(ctx context.Context, m *domain.Membership) (int64, error) {
	var id int64
	err := p.db.QueryRow(ctx,
		"INSERT INTO memberships (name, start_date, end_date, status) VALUES ($1, $2, $3, $4) RETURNING membership_no",
		m.Name, m.StartDate, m.EndDate, m.Status).Scan(&id)
	return id, err
}

func (p *Postgres) Membership(ctx context.Context, id int64) (*domain.Membership, error) {
	return scanMembership(p.db.QueryRow(ctx,
		"SELECT membership_no, name, start_date, end_date, status FROM memberships WHERE membership_no = $1", id))
}

func (p *Postgres) SetMembershipEnd(ctx context.Context, id int64, end time.Time) error {
	tag, err := p.db.Exec(ctx,
		"UPDATE memberships SET end_date = $1 WHERE membership_no = $2", end, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMembershipNotFound
	}
	return nil
}

func (p *Postgres) SetMembershipStatus(ctx context.Context, id int64, status domain.MembershipStatus) error {
	tag, err := p.db.Exec(ctx,
		"UPDATE memberships SET status = $1 WHERE membership_no = $2", status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMembershipNotFound
	}
	return nil
}

// --- loans ---

func (p *Postgres) Loan(ctx context.Context, id int64) (*domain.Loan, error) {
	return scanLoan(p.db.QueryRow(ctx,
		"SELECT id, membership_no, item_id, issue_date, due_date, actual_return_date, fine, fine_paid, remarks FROM loans WHERE id = $1", id))
}

func (p *Postgres) OverdueLoans(ctx context.Context, asOf time.Time) ([]domain.Loan, error) {
	rows, err := p.db.Query(ctx,
		`SELECT id, membership_no, item_id, issue_date, due_date, actual_return_date, fine, fine_paid, remarks
		 FROM loans
		 WHERE actual_return_date IS NULL AND due_date < $1
		 ORDER BY due_date ASC, id ASC`, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	loans := []domain.Loan{}
	for rows.Next() {
		var l domain.Loan
		if err := rows.Scan(&l.ID, &l.MembershipID, &l.ItemID, &l.IssueDate, &l.DueDate,
			&l.ReturnedAt, &l.Fine, &l.FinePaid, &l.Remarks); err != nil {
			return nil, err
		}
		loans = append(loans, l)
	}
	return loans, rows.Err()
}

// --- users ---

func (p *Postgres) CreateUser(ctx context.Context, u *domain.User) (int64, error) {
	var id int64
	err := p.db.QueryRow(ctx,
		"INSERT INTO users (name, password_hash, role) VALUES ($1, $2, $3) RETURNING id",
		u.Name, u.PasswordHash, u.Role).Scan(&id)
	return id, err
}

func (p *Postgres) UserByName(ctx context.Context, name string) (*domain.User, error) {
	var u domain.User
	err := p.db.QueryRow(ctx,
		"SELECT id, name, password_hash, role FROM users WHERE name = $1", name).
		Scan(&u.ID, &u.Name, &u.PasswordHash, &u.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (p *Postgres) SetUserPassword(ctx context.Context, name, hash string) error {
	tag, err := p.db.Exec(ctx,
		"UPDATE users SET password_hash = $1 WHERE name = $2", hash, name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// --- atomic unit ---

func (p *Postgres) WithinTx(ctx context.Context, fn func(Tx) error) error {
	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("tx commit failed: %w", err)
	}
	return nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) ItemForUpdate(ctx context.Context, id int64) (*domain.Item, error) {
	return scanItem(t.tx.QueryRow(ctx,
		"SELECT id, kind, title, author, available FROM items WHERE id = $1 FOR UPDATE", id))
}

func (t *pgTx) SetItemAvailability(ctx context.Context, id int64, available bool) error {
	tag, err := t.tx.Exec(ctx,
		"UPDATE items SET available = $1 WHERE id = $2", available, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

func (t *pgTx) Membership(ctx context.Context, id int64) (*domain.Membership, error) {
	return scanMembership(t.tx.QueryRow(ctx,
		"SELECT membership_no, name, start_date, end_date, status FROM memberships WHERE membership_no = $1", id))
}

func (t *pgTx) CreateLoan(ctx context.Context, loan *domain.Loan) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO loans (membership_no, item_id, issue_date, due_date, fine, fine_paid, remarks)
		 VALUES ($1, $2, $3, $4, 0, FALSE, $5) RETURNING id`,
		loan.MembershipID, loan.ItemID, loan.IssueDate, loan.DueDate, loan.Remarks).Scan(&id)
	return id, err
}

func (t *pgTx) LoanForUpdate(ctx context.Context, id int64) (*domain.Loan, error) {
	return scanLoan(t.tx.QueryRow(ctx,
		"SELECT id, membership_no, item_id, issue_date, due_date, actual_return_date, fine, fine_paid, remarks FROM loans WHERE id = $1 FOR UPDATE", id))
}

func (t *pgTx) CloseLoan(ctx context.Context, id int64, returnedAt time.Time, fineAmount int64, remarks string) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE loans SET actual_return_date = $1, fine = $2, fine_paid = TRUE, remarks = $3
		 WHERE id = $4 AND actual_return_date IS NULL`,
		returnedAt, fineAmount, remarks, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLoanNotFound
	}
	return nil
}

// --- row scanning ---

func scanItem(row pgx.Row) (*domain.Item, error) {
	var it domain.Item
	err := row.Scan(&it.ID, &it.Kind, &it.Title, &it.Author, &it.Available)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func scanMembership(row pgx.Row) (*domain.Membership, error) {
	var m domain.Membership
	err := row.Scan(&m.ID, &m.Name, &m.StartDate, &m.EndDate, &m.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrMembershipNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func scanLoan(row pgx.Row) (*domain.Loan, error) {
	var l domain.Loan
	err := row.Scan(&l.ID, &l.MembershipID, &l.ItemID, &l.IssueDate, &l.DueDate,
		&l.ReturnedAt, &l.Fine, &l.FinePaid, &l.Remarks)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrLoanNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

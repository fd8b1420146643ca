package postgres

import (
	"context"
	"errors"
	"time"

	"bankpay/internal/core"
	"bankpay/internal/store/repositories"

	"github.com/jackc/pgx/v5"
)

// Orders table, for reference:
//
//	CREATE TABLE orders (
//	    id              text PRIMARY KEY,
//	    account_number  text NOT NULL,
//	    account_name    text NOT NULL,
//	    amount          bigint NOT NULL,
//	    reference       text NOT NULL,
//	    payment_status  text NOT NULL DEFAULT 'pending',
//	    created_at      timestamptz NOT NULL DEFAULT now(),
//	    updated_at      timestamptz NOT NULL DEFAULT now(),
//	    paid_ref_no     text,
//	    paid_description text,
//	    paid_amount     double precision,
//	    paid_at         timestamptz
//	);

var _ repositories.OrderStore = (*Repo)(nil)

func (r *Repo) Get(ctx context.Context, id string) (*core.Order, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, account_number, account_name, amount, reference,
		       payment_status, created_at,
		       paid_ref_no, paid_description, paid_amount, paid_at
		  FROM orders
		 WHERE id=$1`, id)

	var o core.Order
	var status string
	var refNo, desc *string
	var paidAmount *float64
	var paidAt *time.Time
	err := row.Scan(&o.ID, &o.AccountNumber, &o.AccountName, &o.Amount, &o.Reference,
		&status, &o.CreatedAt, &refNo, &desc, &paidAmount, &paidAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repositories.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	o.Status = core.PaymentStatus(status)
	if refNo != nil {
		o.PaidWith = &core.Transaction{RefNo: *refNo}
		if desc != nil {
			o.PaidWith.Description = *desc
		}
		if paidAmount != nil {
			o.PaidWith.CreditAmount = *paidAmount
		}
		if paidAt != nil {
			o.PaidWith.Date = *paidAt
		}
	}
	return &o, nil
}

func (r *Repo) CreatePending(ctx context.Context, o core.Order) (*core.Order, error) {
	_, err := r.db.Exec(ctx, `
		INSERT INTO orders (id, account_number, account_name, amount, reference, payment_status, created_at)
		VALUES ($1,$2,$3,$4,$5,'pending',$6)
		ON CONFLICT (id) DO NOTHING`,
		o.ID, o.AccountNumber, o.AccountName, o.Amount, o.Reference, o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	// Re-read so callers see the stored row, including a pre-existing
	// terminal state.
	return r.Get(ctx, o.ID)
}

// MarkPaid is the idempotency arbiter: the conditional UPDATE is atomic per
// row, so exactly one concurrent caller observes RowsAffected()==1 and owns
// the downstream side effects.
func (r *Repo) MarkPaid(ctx context.Context, id string, tx core.Transaction) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE orders
		   SET payment_status='paid',
		       paid_ref_no=$2,
		       paid_description=$3,
		       paid_amount=$4,
		       paid_at=$5,
		       updated_at=now()
		 WHERE id=$1 AND payment_status IN ('pending','error')`,
		id, tx.RefNo, tx.Description, tx.CreditAmount, tx.Date,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repo) MarkExpired(ctx context.Context, id string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE orders
		   SET payment_status='expired', updated_at=now()
		 WHERE id=$1 AND payment_status='pending'`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repo) MarkError(ctx context.Context, id string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE orders
		   SET payment_status='error', updated_at=now()
		 WHERE id=$1 AND payment_status='pending'`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

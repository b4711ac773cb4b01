package database

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/akyairhashvil/timekeep/internal/models"
)

// UpsertProject stores budget data for a project. Project CRUD belongs to
// another service; this exists so budget reads have a local source.
func (d *Database) UpsertProject(ctx context.Context, p models.Project) (int64, error) {
	if p.ID == 0 {
		res, err := d.DB.ExecContext(ctx,
			"INSERT INTO projects (name, budget_hours, budget_amount, hourly_rate) VALUES (?, ?, ?, ?)",
			p.Name, toNullableArg(p.BudgetHours), toNullableArg(p.BudgetAmount), toNullableArg(p.HourlyRate))
		if err != nil {
			return 0, wrapErr(EntityProject, "create", p.Name, err)
		}
		return res.LastInsertId()
	}
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO projects (id, name, budget_hours, budget_amount, hourly_rate) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			budget_hours = excluded.budget_hours,
			budget_amount = excluded.budget_amount,
			hourly_rate = excluded.hourly_rate`,
		p.ID, p.Name, toNullableArg(p.BudgetHours), toNullableArg(p.BudgetAmount), toNullableArg(p.HourlyRate))
	if err != nil {
		return 0, wrapErr(EntityProject, "upsert", strconv.FormatInt(p.ID, 10), err)
	}
	return p.ID, nil
}

func (d *Database) GetProject(ctx context.Context, id int64) (models.Project, error) {
	var (
		p                   models.Project
		hours, amount, rate sql.NullFloat64
	)
	err := d.DB.QueryRowContext(ctx, "SELECT id, name, budget_hours, budget_amount, hourly_rate FROM projects WHERE id = ?", id).
		Scan(&p.ID, &p.Name, &hours, &amount, &rate)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, wrapErr(EntityProject, "get", strconv.FormatInt(id, 10), ErrNotFound)
	}
	if err != nil {
		return models.Project{}, wrapErr(EntityProject, "get", strconv.FormatInt(id, 10), err)
	}
	p.BudgetHours = float64PtrFromNull(hours)
	p.BudgetAmount = float64PtrFromNull(amount)
	p.HourlyRate = float64PtrFromNull(rate)
	return p, nil
}

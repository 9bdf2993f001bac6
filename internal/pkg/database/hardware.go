package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/CyrilB1531/Domosharp-sub000/internal/pkg/model"
)

const hardwareColumns = `id, name, enabled, type, log_level, sort_order, configuration, last_update`

func scanHardware(row pgx.Row) (model.HardwareUnit, error) {
	var (
		u             model.HardwareUnit
		typ, logLevel int
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Enabled, &typ, &logLevel, &u.Order, &u.Configuration, &u.LastUpdate); err != nil {
		return model.HardwareUnit{}, err
	}
	u.Type = model.HardwareType(typ)
	u.LogLevel = model.LogLevel(logLevel)
	return u, nil
}

// GetHardware returns nil without error when no unit has this id.
func (db *Database) GetHardware(ctx context.Context, id int) (*model.HardwareUnit, error) {
	u, err := scanHardware(db.pool.QueryRow(ctx, `SELECT `+hardwareColumns+` FROM hardware WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (db *Database) ListHardware(ctx context.Context) ([]model.HardwareUnit, error) {
	rows, err := db.pool.Query(ctx, `SELECT `+hardwareColumns+` FROM hardware ORDER BY sort_order, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []model.HardwareUnit
	for rows.Next() {
		u, err := scanHardware(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return units, nil
}

func (db *Database) CreateHardware(ctx context.Context, unit *model.HardwareUnit) (*model.HardwareUnit, error) {
	const insertSQL = `
	INSERT INTO hardware (name, enabled, type, log_level, sort_order, configuration)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING ` + hardwareColumns

	created, err := scanHardware(db.pool.QueryRow(ctx, insertSQL,
		unit.Name, unit.Enabled, int(unit.Type), int(unit.LogLevel), unit.Order, unit.Configuration))
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (db *Database) UpdateHardware(ctx context.Context, unit *model.HardwareUnit) (bool, error) {
	const updateSQL = `
	UPDATE hardware SET name = $2, enabled = $3, type = $4, log_level = $5, sort_order = $6,
		configuration = $7, last_update = now()
	WHERE id = $1
	`
	tag, err := db.pool.Exec(ctx, updateSQL, unit.ID,
		unit.Name, unit.Enabled, int(unit.Type), int(unit.LogLevel), unit.Order, unit.Configuration)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteHardware removes the unit and, through the foreign key, its devices.
func (db *Database) DeleteHardware(ctx context.Context, id int) (bool, error) {
	tag, err := db.pool.Exec(ctx, `DELETE FROM hardware WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/CyrilB1531/Domosharp-sub000/internal/pkg/model"
)

const deviceColumns = `id, hardware_id, device_id, name, active, type, favorite, signal_level,
	battery_level, sort_order, protected, specific_parameters, value, relay_index, last_update`

func scanDevice(row pgx.Row) (model.Device, error) {
	var (
		d   model.Device
		typ int
	)
	if err := row.Scan(&d.ID, &d.HardwareID, &d.DeviceID, &d.Name, &d.Active, &typ, &d.Favorite, &d.SignalLevel,
		&d.BatteryLevel, &d.Order, &d.Protected, &d.SpecificParameters, &d.Value, &d.Index, &d.LastUpdate); err != nil {
		return model.Device{}, err
	}
	d.Type = model.DeviceType(typ)
	return d, nil
}

func (db *Database) CreateDevice(ctx context.Context, device *model.Device) (*model.Device, error) {
	const insertSQL = `
	INSERT INTO device (hardware_id, device_id, name, active, type, favorite, signal_level,
		battery_level, sort_order, protected, specific_parameters, value, relay_index)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	RETURNING ` + deviceColumns

	created, err := scanDevice(db.pool.QueryRow(ctx, insertSQL,
		device.HardwareID, device.DeviceID, device.Name, device.Active, int(device.Type), device.Favorite, device.SignalLevel,
		device.BatteryLevel, device.Order, device.Protected, device.SpecificParameters, device.Value, device.Index))
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateDevice replaces the whole stored record. It reports whether a row matched.
func (db *Database) UpdateDevice(ctx context.Context, device *model.Device) (bool, error) {
	const updateSQL = `
	UPDATE device SET hardware_id = $2, device_id = $3, name = $4, active = $5, type = $6, favorite = $7,
		signal_level = $8, battery_level = $9, sort_order = $10, protected = $11, specific_parameters = $12,
		value = $13, relay_index = $14, last_update = now()
	WHERE id = $1
	`
	tag, err := db.pool.Exec(ctx, updateSQL, device.ID,
		device.HardwareID, device.DeviceID, device.Name, device.Active, int(device.Type), device.Favorite,
		device.SignalLevel, device.BatteryLevel, device.Order, device.Protected, device.SpecificParameters,
		device.Value, device.Index)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// GetDevice returns nil without error when no device has this id.
func (db *Database) GetDevice(ctx context.Context, id int) (*model.Device, error) {
	d, err := scanDevice(db.pool.QueryRow(ctx, `SELECT `+deviceColumns+` FROM device WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (db *Database) ListDevices(ctx context.Context, hardwareID int) ([]model.Device, error) {
	rows, err := db.pool.Query(ctx, `SELECT `+deviceColumns+` FROM device WHERE hardware_id = $1 ORDER BY sort_order, id`, hardwareID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []model.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return devices, nil
}

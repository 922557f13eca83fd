package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"callflow-go/internal/models"
)

// PostgreSQL is the history archive. Terminated tunnels and closed charging
// sessions are written here by the API layer on teardown; the live index
// never touches the database.
type PostgreSQL struct {
	db *sql.DB
}

type Config struct {
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	Name               string `yaml:"name"`
	User               string `yaml:"user"`
	Password           string `yaml:"password"`
	SSLMode            string `yaml:"sslmode"`
	MaxConnections     int    `yaml:"max_connections"`
	MaxIdleConnections int    `yaml:"max_idle_connections"`
}

func NewPostgreSQL(cfg Config) (*PostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(time.Hour)

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgreSQL{db: db}, nil
}

func (p *PostgreSQL) Close() error {
	return p.db.Close()
}

// GetDB returns the underlying database connection
func (p *PostgreSQL) GetDB() *sql.DB {
	return p.db
}

// SaveTunnelHistory archives a tunnel record at teardown time. The reason
// is free text from the caller ("deleted", "stale", ...).
func (p *PostgreSQL) SaveTunnelHistory(rec models.TunnelRecord, reason string) error {
	query := `INSERT INTO tunnel_history(
			teid_uplink, teid_downlink, teid_s5_sgw, teid_s5_pgw,
			imsi, ue_ip, apn, msisdn, session_id, eps_bearer_id, qci,
			serving_network, rat_type, created_at, last_activity_at,
			removed_at, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err := p.db.Exec(query,
		rec.TEIDUplink, rec.TEIDDownlink, rec.TEIDS5SGW, rec.TEIDS5PGW,
		rec.IMSI, rec.UEIP, rec.APN, rec.MSISDN, rec.SessionID,
		rec.EPSBearerID, rec.QCI, rec.ServingNetwork, rec.RATType,
		rec.CreatedTimestamp, rec.LastActivityTimestamp,
		time.Now().UnixMilli(), reason)
	if err != nil {
		return fmt.Errorf("failed to save tunnel history: %w", err)
	}

	logrus.Debugf("Archived tunnel %s (imsi=%s, reason=%s)", rec.TunnelID(), rec.IMSI, reason)
	return nil
}

// FetchTunnelHistory returns archived tunnels for a subscriber, newest first.
func (p *PostgreSQL) FetchTunnelHistory(imsi string, limit int) ([]models.TunnelRecord, error) {
	query := `SELECT teid_uplink, teid_downlink, teid_s5_sgw, teid_s5_pgw,
			imsi, ue_ip, apn, msisdn, session_id, eps_bearer_id, qci,
			serving_network, rat_type, created_at, last_activity_at
		FROM tunnel_history WHERE imsi = $1
		ORDER BY removed_at DESC LIMIT $2`

	rows, err := p.db.Query(query, imsi, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tunnel history: %w", err)
	}
	defer rows.Close()

	var records []models.TunnelRecord
	for rows.Next() {
		var rec models.TunnelRecord
		err := rows.Scan(
			&rec.TEIDUplink, &rec.TEIDDownlink, &rec.TEIDS5SGW, &rec.TEIDS5PGW,
			&rec.IMSI, &rec.UEIP, &rec.APN, &rec.MSISDN, &rec.SessionID,
			&rec.EPSBearerID, &rec.QCI, &rec.ServingNetwork, &rec.RATType,
			&rec.CreatedTimestamp, &rec.LastActivityTimestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tunnel history row: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// SaveChargingHistory archives a closed or failed charging session.
func (p *PostgreSQL) SaveChargingHistory(sess *models.ChargingSession) error {
	var resultCode sql.NullInt64
	var resultDesc sql.NullString
	if sess.LastResult != nil {
		resultCode = sql.NullInt64{Int64: int64(sess.LastResult.Code), Valid: true}
		resultDesc = sql.NullString{String: sess.LastResult.Description, Valid: true}
	}

	query := `INSERT INTO charging_history(
			uuid, session_id, interface, imsi, status, tunnel_teid, ue_ip, apn,
			opened_at, closed_at, request_count, last_result_code, last_result_desc)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := p.db.Exec(query,
		sess.UUID, sess.SessionID, string(sess.Interface), sess.IMSI,
		string(sess.Status), sess.TunnelTEID, sess.UEIP, sess.APN,
		sess.OpenedAt, sess.ClosedAt, sess.RequestCount, resultCode, resultDesc)
	if err != nil {
		return fmt.Errorf("failed to save charging history: %w", err)
	}

	return nil
}

// PruneHistory deletes archive rows removed/closed before the cutoff and
// returns the number of rows dropped.
func (p *PostgreSQL) PruneHistory(olderThan time.Time) (int64, error) {
	cutoff := olderThan.UnixMilli()
	var total int64

	res, err := p.db.Exec(`DELETE FROM tunnel_history WHERE removed_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune tunnel history: %w", err)
	}
	n, _ := res.RowsAffected()
	total += n

	res, err = p.db.Exec(`DELETE FROM charging_history WHERE closed_at > 0 AND closed_at < $1`, cutoff)
	if err != nil {
		return total, fmt.Errorf("failed to prune charging history: %w", err)
	}
	n, _ = res.RowsAffected()
	total += n

	logrus.Infof("Pruned %d history rows older than %s", total, olderThan.Format(time.RFC3339))
	return total, nil
}

// Package storage persists users, servers and channels. It is the
// conventional CRUD collaborator around the signaling core; presence is
// never stored here.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/telecord/telecord/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrAccessDenied = errors.New("access denied")
)

type Store struct {
	db *sql.DB
}

// Connect opens the pool and pings it so startup fails fast on a bad DSN.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	log.Info().Str("module", "storage").Msg("mysql connected")
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Migrate applies the schema statements in order.
func (s *Store) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	log.Info().Str("module", "storage").Int("statements", len(schema)).Msg("migrations applied")
	return nil
}

// UpsertUser creates the user row or refreshes its profile fields and
// returns the stored profile.
func (s *Store) UpsertUser(ctx context.Context, u *domain.User) (*domain.User, string, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, first_name, last_name, avatar)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			username = VALUES(username),
			first_name = VALUES(first_name),
			last_name = VALUES(last_name),
			avatar = VALUES(avatar)`,
		u.ID, u.Username, u.FirstName, u.LastName, u.Avatar)
	if err != nil {
		return nil, "", fmt.Errorf("upsert user: %w", err)
	}
	return s.GetUser(ctx, u.ID)
}

func (s *Store) GetUser(ctx context.Context, id domain.UserID) (*domain.User, string, error) {
	var u domain.User
	var status string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, first_name, last_name, avatar, status
		FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Avatar, &status)
	if err == sql.ErrNoRows {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("get user: %w", err)
	}
	return &u, status, nil
}

func (s *Store) UpdateStatus(ctx context.Context, id domain.UserID, status string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return nil
}

// ListServers returns the servers the user is a member of, newest first.
func (s *Store) ListServers(ctx context.Context, uid domain.UserID) ([]domain.Server, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.name, s.description, s.owner_id, s.invite_code, s.created_at, sm.role
		FROM servers s
		JOIN server_members sm ON s.id = sm.server_id
		WHERE sm.user_id = ?
		ORDER BY s.created_at DESC`, uid)
	if err != nil {
		return nil, fmt.Errorf("list servers: %w", err)
	}
	defer rows.Close()

	out := []domain.Server{}
	for rows.Next() {
		var sv domain.Server
		if err := rows.Scan(&sv.ID, &sv.Name, &sv.Description, &sv.OwnerID, &sv.InviteCode, &sv.CreatedAt, &sv.Role); err != nil {
			return nil, fmt.Errorf("scan server: %w", err)
		}
		out = append(out, sv)
	}
	return out, rows.Err()
}

// CreateServer creates the server, its owner membership and a default
// voice channel in one transaction.
func (s *Store) CreateServer(ctx context.Context, owner domain.UserID, name, description string) (*domain.Server, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	invite := newInviteCode()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO servers (name, description, owner_id, invite_code)
		VALUES (?, ?, ?, ?)`, name, description, owner, invite)
	if err != nil {
		return nil, fmt.Errorf("insert server: %w", err)
	}
	serverID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("server id: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO server_members (server_id, user_id, role)
		VALUES (?, ?, ?)`, serverID, owner, domain.RoleOwner); err != nil {
		return nil, fmt.Errorf("insert owner membership: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO channels (server_id, name, type, owner_id)
		VALUES (?, ?, ?, ?)`, serverID, "General", domain.ChannelTypeVoice, owner); err != nil {
		return nil, fmt.Errorf("insert default channel: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	log.Info().Str("module", "storage").Int64("server", serverID).Int64("owner", int64(owner)).Msg("server created")
	return &domain.Server{
		ID:          serverID,
		Name:        name,
		Description: description,
		OwnerID:     owner,
		InviteCode:  invite,
		Role:        domain.RoleOwner,
	}, nil
}

// JoinServerByInvite adds the user as a member; joining twice is a no-op.
func (s *Store) JoinServerByInvite(ctx context.Context, uid domain.UserID, invite string) (*domain.Server, error) {
	var sv domain.Server
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, owner_id, invite_code, created_at
		FROM servers WHERE invite_code = ?`, invite).
		Scan(&sv.ID, &sv.Name, &sv.Description, &sv.OwnerID, &sv.InviteCode, &sv.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find server: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT IGNORE INTO server_members (server_id, user_id, role)
		VALUES (?, ?, ?)`, sv.ID, uid, domain.RoleMember); err != nil {
		return nil, fmt.Errorf("join server: %w", err)
	}
	sv.Role = domain.RoleMember
	return &sv, nil
}

func (s *Store) memberRole(ctx context.Context, serverID int64, uid domain.UserID) (string, error) {
	var role string
	err := s.db.QueryRowContext(ctx, `
		SELECT role FROM server_members WHERE server_id = ? AND user_id = ?`,
		serverID, uid).Scan(&role)
	if err == sql.ErrNoRows {
		return "", ErrAccessDenied
	}
	if err != nil {
		return "", fmt.Errorf("member role: %w", err)
	}
	return role, nil
}

// ListChannels returns the server's channels; the caller must be a member.
func (s *Store) ListChannels(ctx context.Context, serverID int64, uid domain.UserID) ([]domain.Channel, error) {
	if _, err := s.memberRole(ctx, serverID, uid); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, server_id, name, type, owner_id, created_at
		FROM channels WHERE server_id = ? ORDER BY created_at ASC`, serverID)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	out := []domain.Channel{}
	for rows.Next() {
		var ch domain.Channel
		if err := rows.Scan(&ch.ID, &ch.ServerID, &ch.Name, &ch.Type, &ch.OwnerID, &ch.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

// CreateChannel requires owner or admin role on the server.
func (s *Store) CreateChannel(ctx context.Context, serverID int64, uid domain.UserID, name, chType string) (*domain.Channel, error) {
	role, err := s.memberRole(ctx, serverID, uid)
	if err != nil {
		return nil, err
	}
	if role != domain.RoleOwner && role != domain.RoleAdmin {
		return nil, ErrAccessDenied
	}
	if chType == "" {
		chType = domain.ChannelTypeVoice
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO channels (server_id, name, type, owner_id)
		VALUES (?, ?, ?, ?)`, serverID, name, chType, uid)
	if err != nil {
		return nil, fmt.Errorf("insert channel: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("channel id: %w", err)
	}
	return &domain.Channel{ID: id, ServerID: serverID, Name: name, Type: chType, OwnerID: uid}, nil
}

// JoinChannel records channel membership; the user must belong to the
// channel's server.
func (s *Store) JoinChannel(ctx context.Context, channelID int64, uid domain.UserID) (*domain.Channel, error) {
	var ch domain.Channel
	err := s.db.QueryRowContext(ctx, `
		SELECT c.id, c.server_id, c.name, c.type, c.owner_id, c.created_at
		FROM channels c
		JOIN server_members sm ON c.server_id = sm.server_id
		WHERE c.id = ? AND sm.user_id = ?`, channelID, uid).
		Scan(&ch.ID, &ch.ServerID, &ch.Name, &ch.Type, &ch.OwnerID, &ch.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrAccessDenied
	}
	if err != nil {
		return nil, fmt.Errorf("find channel: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT IGNORE INTO channel_members (channel_id, user_id)
		VALUES (?, ?)`, channelID, uid); err != nil {
		return nil, fmt.Errorf("join channel: %w", err)
	}
	return &ch, nil
}

// ChannelMember is a membership row joined with the user profile.
type ChannelMember struct {
	domain.User
	Status   string    `json:"status"`
	JoinedAt time.Time `json:"joined_at"`
}

// ChannelMembers lists channel members visible to a fellow server member.
func (s *Store) ChannelMembers(ctx context.Context, channelID int64, uid domain.UserID) ([]ChannelMember, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.username, u.first_name, u.last_name, u.avatar, u.status, cm.joined_at
		FROM channel_members cm
		JOIN users u ON cm.user_id = u.id
		JOIN channels c ON cm.channel_id = c.id
		JOIN server_members sm ON c.server_id = sm.server_id AND sm.user_id = ?
		WHERE cm.channel_id = ?
		ORDER BY cm.joined_at ASC`, uid, channelID)
	if err != nil {
		return nil, fmt.Errorf("channel members: %w", err)
	}
	defer rows.Close()

	out := []ChannelMember{}
	for rows.Next() {
		var m ChannelMember
		if err := rows.Scan(&m.ID, &m.Username, &m.FirstName, &m.LastName, &m.Avatar, &m.Status, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func newInviteCode() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

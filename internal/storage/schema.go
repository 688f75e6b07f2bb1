package storage

// Schema statements run in order by Migrate. Kept as statements rather
// than files so the binary is self-contained.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT PRIMARY KEY,
		username VARCHAR(64) NOT NULL DEFAULT '',
		first_name VARCHAR(64) NOT NULL DEFAULT '',
		last_name VARCHAR(64) NOT NULL DEFAULT '',
		avatar VARCHAR(512) NOT NULL DEFAULT '',
		status VARCHAR(16) NOT NULL DEFAULT 'online',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS servers (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(128) NOT NULL,
		description VARCHAR(512) NOT NULL DEFAULT '',
		owner_id BIGINT NOT NULL,
		invite_code VARCHAR(32) NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_invite_code (invite_code)
	)`,
	`CREATE TABLE IF NOT EXISTS server_members (
		server_id BIGINT NOT NULL,
		user_id BIGINT NOT NULL,
		role VARCHAR(16) NOT NULL DEFAULT 'member',
		joined_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (server_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS channels (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		server_id BIGINT NOT NULL,
		name VARCHAR(128) NOT NULL,
		type VARCHAR(16) NOT NULL DEFAULT 'voice',
		owner_id BIGINT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS channel_members (
		channel_id BIGINT NOT NULL,
		user_id BIGINT NOT NULL,
		joined_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (channel_id, user_id)
	)`,
}

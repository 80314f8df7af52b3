package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order at startup.  Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		username      VARCHAR(64)  NOT NULL,
		email         VARCHAR(255) NULL,
		password_hash VARCHAR(255) NOT NULL,
		created_at    DATETIME     NOT NULL,
		UNIQUE KEY uq_users_username (username),
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS quotas (
		user_id    BIGINT UNSIGNED PRIMARY KEY,
		remaining  INT      NOT NULL,
		last_reset DATETIME NOT NULL,
		CONSTRAINT fk_quotas_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
		CONSTRAINT chk_quotas_remaining CHECK (remaining >= 0)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS quizzes (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id    BIGINT UNSIGNED NOT NULL,
		title      VARCHAR(255) NOT NULL,
		result     VARCHAR(255) NULL,
		created_at DATETIME     NOT NULL,
		KEY idx_quizzes_user_created (user_id, created_at),
		CONSTRAINT fk_quizzes_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS quiz_elements (
		id             BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		quiz_id        BIGINT UNSIGNED NOT NULL,
		position       INT  NOT NULL,
		question       TEXT NOT NULL,
		options        TEXT NOT NULL,
		correct_option TINYINT UNSIGNED NOT NULL,
		point          INT  NOT NULL,
		explanation    TEXT NOT NULL,
		UNIQUE KEY uq_quiz_elements_position (quiz_id, position),
		CONSTRAINT fk_quiz_elements_quiz FOREIGN KEY (quiz_id) REFERENCES quizzes(id) ON DELETE CASCADE,
		CONSTRAINT chk_quiz_elements_option CHECK (correct_option < 4),
		CONSTRAINT chk_quiz_elements_point CHECK (point > 0)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id    BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_refresh_tokens_hash (token_hash),
		CONSTRAINT fk_refresh_tokens_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates any missing tables.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("database.Migrate: statement %d: %w", i, err)
		}
	}
	return nil
}

package store

// Run queries
const (
	queryInsertRun = `
		INSERT INTO runs (
			id, kind, country, currency, success, message,
			verification, before_screenshot, after_screenshot, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetRun = `
		SELECT id, kind, country, currency, success, message,
			verification, before_screenshot, after_screenshot, created_at
		FROM runs WHERE id = ?`
)

package models

// All lists every persisted model, in dependency order, for AutoMigrate callers.
func All() []any {
	return []any{
		&User{},
		&Product{},
		&BatchImport{},
		&Order{},
		&Transaction{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}

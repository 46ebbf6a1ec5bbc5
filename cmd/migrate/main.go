package main

import (
	"fmt"
	"os"

	"mailflow/backend/internal/config"
	"mailflow/backend/internal/storage/postgres"
)

// main 对配置的数据库执行表结构迁移后退出。
// 迁移在 NewStore 内部自动执行，这里只负责建立连接和报告结果。
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if cfg.Database.Type == "" || cfg.Database.DSN == "" {
		fmt.Fprintln(os.Stderr, "no database configured, nothing to migrate")
		os.Exit(1)
	}

	var migrateErr error
	switch cfg.Database.Type {
	case "postgres":
		_, migrateErr = postgres.NewStore(cfg.Database.DSN)
	case "mysql":
		_, migrateErr = postgres.NewMySQLStore(cfg.Database.DSN)
	default:
		fmt.Fprintf(os.Stderr, "unsupported database type: %s\n", cfg.Database.Type)
		os.Exit(1)
	}

	if migrateErr != nil {
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", migrateErr)
		os.Exit(1)
	}

	fmt.Println("migration completed")
}

package main

import (
	"fmt"
	"os"

	"mailmask/backend/internal/config"
	"mailmask/backend/internal/logger"
	"mailmask/backend/internal/service"
	"mailmask/backend/internal/storage"
	"mailmask/backend/internal/storage/memory"
	"mailmask/backend/internal/storage/postgres"
)

// 创建一个终身会员账号，用于部署后的初始管理。
func main() {
	if len(os.Args) < 4 {
		fmt.Println("用法: create-admin <email> <password> <name>")
		fmt.Println("示例: create-admin admin@example.com secret123456 Admin")
		os.Exit(1)
	}

	email := os.Args[1]
	password := os.Args[2]
	name := os.Args[3]

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("错误: 无法加载配置: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Printf("错误: 无法初始化日志: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	var store storage.Store
	if cfg.Database.Type != "" && cfg.Database.DSN != "" {
		store, err = postgres.NewStore(cfg.Database)
		if err != nil {
			fmt.Printf("错误: 无法连接数据库: %v\n", err)
			os.Exit(1)
		}
	} else {
		store = memory.NewStore()
		fmt.Println("警告: 未配置数据库，账号只存在于内存中，进程退出即丢失")
	}
	defer store.Close()

	users := service.NewUserService(store, log)
	user, err := users.Create(email, password, name)
	if err != nil {
		fmt.Printf("错误: 创建账号失败: %v\n", err)
		os.Exit(1)
	}

	user.Lifetime = true
	if err := store.UpdateUser(user); err != nil {
		fmt.Printf("错误: 设置终身会员失败: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("✓ 管理员账号创建成功!")
	fmt.Printf("  ID:    %s\n", user.ID)
	fmt.Printf("  邮箱:  %s\n", user.Email)
	fmt.Printf("  名称:  %s\n", user.Name)
	fmt.Println("  套餐:  终身会员")
}

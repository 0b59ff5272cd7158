package cmd

import (
	"fmt"
	"log"

	"resona/config"
	"resona/db"
	"resona/model"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "初始化数据库表结构",
	Long:  `创建所有数据库表：手写 SQL 的表结构 + GORM 管理的模型。`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()

		if err := db.ConnectDB(cfg); err != nil {
			log.Fatalf("无法连接到数据库: %v", err)
		}
		defer db.DB.Close()

		if err := db.InitDB(); err != nil {
			log.Fatalf("初始化表结构失败: %v", err)
		}
		fmt.Println("数据库表结构初始化成功！")

		if err := db.ConnectGormDB(cfg); err != nil {
			log.Fatalf("GORM连接数据库失败: %v", err)
		}
		defer db.CloseGormDB()

		if err := db.AutoMigrateModels(&model.Video{}); err != nil {
			log.Fatalf("GORM迁移失败: %v", err)
		}
		fmt.Println("GORM模型迁移成功！")
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

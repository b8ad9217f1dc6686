package db

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"hydro-system/model"
)

var DB *gorm.DB

func InitDB() {
	// 从环境变量读取配置 (为了 Docker 部署方便)
	host := getEnvOrDefault("DB_HOST", "localhost")
	port := getEnvOrDefault("DB_PORT", "5432")
	user := getEnvOrDefault("DB_USER", "hydrouser")
	password := getEnvOrDefault("DB_PASSWORD", "hydropassword")
	dbname := getEnvOrDefault("DB_NAME", "hydromatch")

	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=Asia/Shanghai",
		host, user, password, dbname, port,
	)

	// 带重试的数据库连接 (Docker 启动时数据库可能还没准备好)
	var err error
	maxRetries := 30
	for i := 0; i < maxRetries; i++ {
		DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err == nil {
			break
		}
		log.Printf("等待数据库就绪... (%d/%d): %v", i+1, maxRetries, err)
		time.Sleep(2 * time.Second)
	}

	if err != nil {
		log.Fatalf("无法连接数据库: %v", err)
	}

	// 自动迁移模式 (自动创建表结构)
	err = DB.AutoMigrate(&model.User{}, &model.Site{}, &model.Stream{})
	if err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}

	// 检查是否需要导入初始数据
	var siteCount int64
	DB.Model(&model.Site{}).Count(&siteCount)
	if siteCount == 0 {
		log.Println("检测到数据库为空，正在导入 hydro_data.json...")
		if err := importHydroData("hydro_data.json"); err != nil {
			log.Printf("警告: 导入水文数据失败: %v", err)
		} else {
			log.Println("水文数据导入成功!")
		}
	}

	log.Println("数据库连接并初始化成功！")
}

// getEnvOrDefault 获取环境变量，如果不存在则返回默认值
func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// importHydroData 从 JSON 文件导入站点与河段数据到数据库
func importHydroData(filepath string) error {
	file, err := os.ReadFile(filepath)
	if err != nil {
		return fmt.Errorf("读取文件失败: %w", err)
	}

	// 使用临时结构体解析 JSON (河段坐标在 JSON 中是 [[x, y], ...] 的点序列)
	var data struct {
		Meta    map[string]interface{} `json:"meta"`
		Sites   []model.Site           `json:"sites"`
		Streams []struct {
			ID     string       `json:"id"`
			Name   *string      `json:"name"`
			Coords [][2]float64 `json:"coords"`
		} `json:"streams"`
	}

	if err := json.Unmarshal(file, &data); err != nil {
		return fmt.Errorf("解析 JSON 失败: %w", err)
	}

	// 批量插入站点
	if len(data.Sites) > 0 {
		if err := DB.CreateInBatches(data.Sites, 100).Error; err != nil {
			return fmt.Errorf("插入站点失败: %w", err)
		}
		log.Printf("导入了 %d 个站点", len(data.Sites))
	}

	// 批量插入河段 (点序列展平为 pq.Float64Array)
	if len(data.Streams) > 0 {
		streams := make([]model.Stream, len(data.Streams))
		for i, s := range data.Streams {
			coords := make(pq.Float64Array, 0, len(s.Coords)*2)
			for _, c := range s.Coords {
				coords = append(coords, c[0], c[1])
			}
			streams[i] = model.Stream{
				ID:     s.ID,
				Name:   s.Name,
				Coords: coords,
			}
		}
		if err := DB.CreateInBatches(streams, 100).Error; err != nil {
			return fmt.Errorf("插入河段失败: %w", err)
		}
		log.Printf("导入了 %d 条河段", len(streams))
	}

	return nil
}

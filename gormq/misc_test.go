package gormq

import (
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Alp4ka/gopager/v2"
)

type Profile struct {
	ID   uint
	City string
}

type Post struct {
	ID     uint
	UserID uint
	Title  string
}

type User struct {
	ID        uint
	Name      string
	Email     string
	CreatedAt *time.Time
	ProfileID *uint
	Profile   *Profile
	Posts     []Post
}

var _sqlMockFnList = []func() (string, *gorm.DB, sqlmock.Sqlmock, error){
	newGORMMySQLMock,
	newGORMPostgresMock,
}

func newGORMMySQLMock() (string, *gorm.DB, sqlmock.Sqlmock, error) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		return "", nil, nil, err
	}

	dialector := mysql.New(mysql.Config{
		Conn:                      mockDB,
		SkipInitializeWithVersion: true,
	})

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return "", nil, nil, err
	}

	return "mysql", db.Debug(), mock, nil
}

func newGORMPostgresMock() (string, *gorm.DB, sqlmock.Sqlmock, error) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		return "", nil, nil, err
	}

	dialector := postgres.New(postgres.Config{
		Conn: mockDB,
	})

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return "", nil, nil, err
	}

	return "postgres", db.Debug(), mock, nil
}

// q picks the dialect flavour of an expected SQL fragment.
func q(dialect, mysqlSQL, postgresSQL string) string {
	if dialect == "mysql" {
		return mysqlSQL
	}

	return postgresSQL
}

func withColumn(o gopager.OrderBy, column string) gopager.OrderBy {
	o.Column = column
	return o
}

// withPostCounts is a grouped query over users aliased "u" with the number
// of posts of each user.
func withPostCounts(db *gorm.DB) *gorm.DB {
	return db.Model(&User{}).
		Table("users AS u").
		Select("u.*, COUNT(p.id) AS post_count").
		Joins("LEFT JOIN posts p ON p.user_id = u.id").
		Group("u.id")
}

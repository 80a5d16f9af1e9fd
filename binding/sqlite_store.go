package binding

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/grovetools/qualitylink/errors"
	"github.com/grovetools/qualitylink/logging"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// bindingModel is the GORM model for the bindings table
type bindingModel struct {
	WorkspaceRoot string `gorm:"primaryKey"`
	ProjectKey    string `gorm:"not null"`
	ProjectName   string `gorm:"default:''"`
	ServerURI     string `gorm:"not null"`
	AuthType      string `gorm:"default:''"`
	UserName      string `gorm:"default:''"`
	Secret        string `gorm:"default:''"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName specifies the table name for GORM
func (bindingModel) TableName() string { return "bindings" }

// SQLiteStore keeps the bindings of all workspaces in one SQLite database,
// keyed by workspace root.
type SQLiteStore struct {
	db        *gorm.DB
	workspace Workspace
}

// Verify interface compliance at compile time
var _ Store = (*SQLiteStore)(nil)

// gormLogger routes GORM logs to the binding component logger
type gormLogger struct {
	level logger.LogLevel
	entry *logrus.Entry
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	return &gormLogger{level: level, entry: l.entry}
}

func (l *gormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Info {
		l.entry.Infof(msg, data...)
	}
}

func (l *gormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Warn {
		l.entry.Warnf(msg, data...)
	}
}

func (l *gormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Error {
		l.entry.Errorf(msg, data...)
	}
}

func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level < logger.Info {
		return
	}

	sql, rows := fc()
	fields := logrus.Fields{
		"duration": time.Since(begin),
		"sql":      sql,
		"rows":     rows,
	}
	if err != nil && !stderrors.Is(err, gorm.ErrRecordNotFound) {
		l.entry.WithFields(fields).WithError(err).Error("gorm query error")
		return
	}
	l.entry.WithFields(fields).Debug("gorm query")
}

func newGormLogger() logger.Interface {
	entry := logging.NewLogger("binding-db")
	if entry.Logger.IsLevelEnabled(logrus.DebugLevel) {
		return (&gormLogger{entry: entry}).LogMode(logger.Info)
	}
	return (&gormLogger{entry: entry}).LogMode(logger.Silent)
}

// NewSQLiteStore opens (and migrates) the binding database at dbPath.
func NewSQLiteStore(dbPath string, ws Workspace) (*SQLiteStore, error) {
	if ws == nil {
		return nil, errors.InvalidArgument("workspace")
	}
	if dbPath == "" {
		return nil, errors.InvalidArgument("dbPath")
	}

	// Expand home directory if present
	if dbPath[0] == '~' {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(homeDir, dbPath[1:])
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, errors.BindingWrite(dbPath, err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
		Logger:  newGormLogger(),
	})
	if err != nil {
		return nil, errors.BindingRead(dbPath, err)
	}

	applyPragmas(db, logging.NewLogger("binding-store").WithField("path", dbPath))

	if err := db.AutoMigrate(&bindingModel{}); err != nil {
		closeDB(db)
		return nil, errors.Wrap(err, errors.ErrCodeBindingWrite, "failed to migrate binding schema").
			WithDetail("path", dbPath)
	}

	return &SQLiteStore{db: db, workspace: ws}, nil
}

// Read implements Reader.Read
func (s *SQLiteStore) Read() (*BoundProject, error) {
	root, ok := s.workspace.ActiveRoot()
	if !ok {
		return nil, nil
	}

	var model bindingModel
	err := s.db.Where("workspace_root = ?", root).First(&model).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.BindingRead(root, err)
	}

	bound := modelToBinding(model)
	if err := bound.Validate(); err != nil {
		return nil, errors.BindingInvalid(root, err.Error())
	}
	return &bound, nil
}

// Write implements Store.Write; an existing row for the workspace is replaced.
func (s *SQLiteStore) Write(bound BoundProject) error {
	if err := bound.Validate(); err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidArgument, "refusing to write invalid binding")
	}
	root, ok := s.workspace.ActiveRoot()
	if !ok {
		return errors.New(errors.ErrCodeBindingWrite, "no workspace is open")
	}

	model := bindingToModel(root, bound)
	if err := s.db.Save(&model).Error; err != nil {
		return errors.BindingWrite(root, err)
	}
	return nil
}

// Delete implements Store.Delete
func (s *SQLiteStore) Delete() error {
	root, ok := s.workspace.ActiveRoot()
	if !ok {
		return nil
	}
	if err := s.db.Where("workspace_root = ?", root).Delete(&bindingModel{}).Error; err != nil {
		return errors.BindingWrite(root, err)
	}
	return nil
}

// Close closes the underlying database connection
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var sqlitePragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
}

// applyPragmas tunes the connection. A failed pragma leaves the store usable
// with SQLite defaults.
func applyPragmas(db *gorm.DB, log *logrus.Entry) {
	for _, pragma := range sqlitePragmas {
		if err := db.Exec(pragma).Error; err != nil {
			log.WithError(err).WithField("pragma", pragma).Warn("SQLite pragma failed")
		}
	}
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}

func modelToBinding(m bindingModel) BoundProject {
	bound := BoundProject{
		ProjectKey:  m.ProjectKey,
		ProjectName: m.ProjectName,
		ServerURI:   m.ServerURI,
	}
	if m.AuthType != "" && m.AuthType != string(AuthAnonymous) {
		bound.Credentials = &Credentials{
			Type:     AuthMethod(m.AuthType),
			UserName: m.UserName,
			Secret:   m.Secret,
		}
	}
	return bound
}

func bindingToModel(root string, b BoundProject) bindingModel {
	m := bindingModel{
		WorkspaceRoot: root,
		ProjectKey:    b.ProjectKey,
		ProjectName:   b.ProjectName,
		ServerURI:     b.ServerURI,
	}
	if b.Credentials != nil {
		m.AuthType = string(b.Credentials.Type)
		m.UserName = b.Credentials.UserName
		m.Secret = b.Credentials.Secret
	}
	return m
}

package migration

import (
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pxocore/internal/app/server/config"
)

// MockMigrator мок интерфейса Migrator
type MockMigrator struct {
	mock.Mock
}

func (m *MockMigrator) Up() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockMigrator) Down() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockMigrator) Close() (error, error) {
	args := m.Called()
	return args.Error(0), args.Error(1)
}

func testConfig(path string) *config.Config {
	return &config.Config{
		DB: config.DB{DatabaseURI: "postgres://localhost/pxo", Migrations: path},
	}
}

func TestMigration_Up_Success(t *testing.T) {
	mockM := new(MockMigrator)

	// Настраиваем поведение
	mockM.On("Up").Return(nil)
	mockM.On("Close").Return(nil, nil)

	var gotSource, gotDB string
	engine := func(source, db string) (Migrator, error) {
		gotSource, gotDB = source, db
		return mockM, nil
	}

	mg := NewMigration(testConfig("/srv/migrations"), engine)
	err := mg.Up()

	assert.NoError(t, err)
	assert.Equal(t, "file:///srv/migrations", gotSource)
	assert.Equal(t, "postgres://localhost/pxo", gotDB)
	mockM.AssertExpectations(t)
}

func TestMigration_Up_NoChange(t *testing.T) {
	mockM := new(MockMigrator)

	// ErrNoChange не должна считаться ошибкой в методе Up()
	mockM.On("Up").Return(migrate.ErrNoChange)
	mockM.On("Close").Return(nil, nil)

	engine := func(source, db string) (Migrator, error) {
		return mockM, nil
	}

	err := NewMigration(testConfig(""), engine).Up()
	assert.NoError(t, err)
}

func TestMigration_Up_EngineError(t *testing.T) {
	// Ошибка на этапе создания мигратора (например, неверный драйвер)
	engine := func(source, db string) (Migrator, error) {
		return nil, errors.New("engine crash")
	}

	err := NewMigration(testConfig(""), engine).Up()
	assert.EqualError(t, err, "engine crash")
}

func TestMigration_Up_CloseErrorsAreReported(t *testing.T) {
	mockM := new(MockMigrator)
	mockM.On("Up").Return(errors.New("dirty database"))
	mockM.On("Close").Return(nil, errors.New("conn closed"))

	engine := func(source, db string) (Migrator, error) {
		return mockM, nil
	}

	err := NewMigration(testConfig(""), engine).Up()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dirty database")
	assert.Contains(t, err.Error(), "conn closed")
}

func TestMigration_Down(t *testing.T) {
	mockM := new(MockMigrator)
	mockM.On("Down").Return(nil)
	mockM.On("Close").Return(nil, nil)

	engine := func(source, db string) (Migrator, error) {
		return mockM, nil
	}

	assert.NoError(t, NewMigration(testConfig(""), engine).Down())
	mockM.AssertExpectations(t)
}

func TestMigration_SourceURL(t *testing.T) {
	assert.Equal(t, EmbeddedSource, NewMigration(testConfig(""), nil).SourceURL())
	assert.Equal(t, "file://./migrations", NewMigration(testConfig("./migrations"), nil).SourceURL())
}

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := embedded.ReadDir("sql")
	require.NoError(t, err)

	// у каждой миграции есть up и down
	assert.Len(t, entries, 10)
}

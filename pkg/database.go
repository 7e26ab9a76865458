package reaction

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	sqlx "github.com/jmoiron/sqlx" //make alias name the package to sqlx
)

func ConnectToDatabase(user string, pass string, host string, dbname string) (*sqlx.DB, error) {
	port := "3306"
	dbURI := fmt.Sprintf("%s:%s@(%s:%s)/%s?parseTime=true", user, pass, host, port, dbname)
	db, err := sqlx.Connect("mysql", dbURI)
	return db, err
}

type particleMassEntry struct {
	PDG  int32   `db:"PDG"`
	Mass float64 `db:"Mass"`
}

type detectorNameEntry struct {
	DetectorID int16  `db:"DetectorID"`
	Name       string `db:"Name"`
}

const (
	massesQuery    = "SELECT PDG, Mass FROM ParticleMasses WHERE MinRun <= ? and MaxRun >= ?"
	detectorsQuery = "SELECT DetectorID, Name FROM DetectorNames WHERE MinRun <= ? and MaxRun >= ? ORDER BY DetectorID"
)

// LoadTables reads the lookup tables valid for runNumber and lays them over
// the defaults.
func LoadTables(db *sqlx.DB, runNumber int) (Tables, error) {
	masses, err := getMassesFromDB(db, runNumber)
	if err != nil {
		errMessage := fmt.Errorf("error getting particle masses from database: %w", err)
		logger.Error(errMessage.Error())
		return Tables{}, errMessage
	}
	detectors, err := getDetectorsFromDB(db, runNumber)
	if err != nil {
		errMessage := fmt.Errorf("error getting detector names from database: %w", err)
		logger.Error(errMessage.Error())
		return Tables{}, errMessage
	}
	return DefaultTables().Merge(NewTables(masses, detectors)), nil
}

func getMassesFromDB(db *sqlx.DB, runNumber int) (map[int32]float64, error) {
	if configuration.Verbosity > 0 {
		logger.Info("Reading particle masses from database", "database")
	}
	if configuration.Verbosity > 2 {
		message := fmt.Sprintf("Query: %s [run %d]", massesQuery, runNumber)
		logger.Info(message, "database")
	}
	rows, err := db.Queryx(massesQuery, runNumber, runNumber)
	if err != nil {
		return nil, fmt.Errorf("error querying database: %w", err)
	}
	defer rows.Close()

	masses := make(map[int32]float64)
	for rows.Next() {
		result := particleMassEntry{}
		if err := rows.StructScan(&result); err != nil {
			return nil, fmt.Errorf("error scanning DB row: %w", err)
		}
		masses[result.PDG] = result.Mass
	}
	return masses, rows.Err()
}

func getDetectorsFromDB(db *sqlx.DB, runNumber int) (map[DetectorID]string, error) {
	if configuration.Verbosity > 0 {
		logger.Info("Reading detector names from database", "database")
	}
	if configuration.Verbosity > 2 {
		message := fmt.Sprintf("Query: %s [run %d]", detectorsQuery, runNumber)
		logger.Info(message, "database")
	}
	rows, err := db.Queryx(detectorsQuery, runNumber, runNumber)
	if err != nil {
		return nil, fmt.Errorf("error querying database: %w", err)
	}
	defer rows.Close()

	detectors := make(map[DetectorID]string)
	for rows.Next() {
		result := detectorNameEntry{}
		if err := rows.StructScan(&result); err != nil {
			return nil, fmt.Errorf("error scanning DB row: %w", err)
		}
		detectors[DetectorID(result.DetectorID)] = result.Name
	}
	return detectors, rows.Err()
}

package btl

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

//BMatrix contains a bipartite data set: features of the row entities, features of the
//column entities and the interaction matrix between them.
type BMatrix struct {
	XRows *mat.Dense // n_rows x p
	XCols *mat.Dense // n_cols x q
	Y     *mat.Dense // n_rows x n_cols

	// Optional per-entity sample weights. The entry (i, j) weighs
	// RowWeights[i]*ColWeights[j]; nil means unit weights.
	RowWeights []float64
	ColWeights []float64

	Description *string
}

//SetDescription sets a description for a BMatrix object
func (bm *BMatrix) SetDescription(description string) {
	bm.Description = &description
}

//ReadBMatrix reads the three components of a bipartite data set from npy files.
func ReadBMatrix(fileNameRows, fileNameCols, fileNameTarget string) (bm BMatrix, err error) {
	log.Debug().Str("file", fileNameRows).Msg("load row features")
	if bm.XRows, err = ReadNpy(fileNameRows); err != nil {
		return BMatrix{}, err
	}
	log.Debug().Str("file", fileNameCols).Msg("load column features")
	if bm.XCols, err = ReadNpy(fileNameCols); err != nil {
		return BMatrix{}, err
	}
	log.Debug().Str("file", fileNameTarget).Msg("load interaction matrix")
	if bm.Y, err = ReadNpy(fileNameTarget); err != nil {
		return BMatrix{}, err
	}
	return bm, nil
}

//ReadNpy reads the content of npy file
func ReadNpy(fileName string) (*mat.Dense, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("read npy header of %s: %w", fileName, err)
	}

	denseMat := &mat.Dense{}
	if err := r.Read(denseMat); err != nil {
		return nil, fmt.Errorf("read npy data of %s: %w", fileName, err)
	}
	return denseMat, nil
}

//WriteNpy stores a matrix into npy file
func WriteNpy(fileName string, m *mat.Dense) error {
	dst, err := os.Create(fileName)
	if err != nil {
		return err
	}
	if err := npyio.Write(dst, m); err != nil {
		dst.Close()
		return fmt.Errorf("write npy %s: %w", fileName, err)
	}
	return dst.Close()
}

//validatedDimensions checks the consistency of dimensions in arrays of the current data set
//and returns the number of rows, the number of columns and the feature widths of both axes.
func (bm BMatrix) validatedDimensions() (nRows, nCols, p, q int, err error) {
	if bm.XRows == nil || bm.XCols == nil || bm.Y == nil {
		return 0, 0, 0, 0, ErrEmptyData
	}
	nRows, p = bm.XRows.Dims()
	nCols, q = bm.XCols.Dims()
	if nRows == 0 || nCols == 0 || p == 0 || q == 0 {
		return 0, 0, 0, 0, ErrEmptyData
	}
	yRows, yCols := bm.Y.Dims()
	if yRows != nRows {
		return 0, 0, 0, 0, fmt.Errorf("the target height %d is not equal to the row count %d: %w", yRows, nRows, ErrDimensionMismatch)
	}
	if yCols != nCols {
		return 0, 0, 0, 0, fmt.Errorf("the target width %d is not equal to the column count %d: %w", yCols, nCols, ErrDimensionMismatch)
	}
	if err := checkSampleWeights(bm.RowWeights, nRows); err != nil {
		return 0, 0, 0, 0, fmt.Errorf("row weights: %w", err)
	}
	if err := checkSampleWeights(bm.ColWeights, nCols); err != nil {
		return 0, 0, 0, 0, fmt.Errorf("column weights: %w", err)
	}
	return nRows, nCols, p, q, nil
}

func checkSampleWeights(w []float64, n int) error {
	if w == nil {
		return nil
	}
	if len(w) != n {
		return fmt.Errorf("got %d weights for %d entities: %w", len(w), n, ErrDimensionMismatch)
	}
	for _, v := range w {
		if v < 0 {
			return ErrNegativeWeight
		}
	}
	return nil
}

// unitIfNil returns w, or a slice of n ones when w is nil.
func unitIfNil(w []float64, n int) []float64 {
	if w != nil {
		return w
	}
	ones := make([]float64, n)
	for i := range ones {
		ones[i] = 1
	}
	return ones
}

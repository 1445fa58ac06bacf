package mathutil

// Vec is a float64 vector.
type Vec = []float64

// Mat is a 2D float64 matrix stored as row-major [][]float64.
type Mat = [][]float64

// NewMat creates a zeroed rows x cols matrix whose rows share one
// backing slice.
func NewMat(rows, cols int) Mat {
	m := make(Mat, rows)
	data := make([]float64, rows*cols)
	for i := range m {
		m[i] = data[i*cols : (i+1)*cols]
	}
	return m
}

// NewMatFill creates a rows x cols matrix filled with val.
func NewMatFill(rows, cols int, val float64) Mat {
	m := NewMat(rows, cols)
	FillMat(m, val)
	return m
}

// CloneMat returns a deep copy of m backed by a single allocation.
func CloneMat(m Mat) Mat {
	if len(m) == 0 {
		return Mat{}
	}
	c := NewMat(len(m), len(m[0]))
	for i := range m {
		copy(c[i], m[i])
	}
	return c
}

// NewVecFill creates a vector of length n filled with val.
func NewVecFill(n int, val float64) Vec {
	v := make(Vec, n)
	FillVec(v, val)
	return v
}

// FillMat sets every element of m to val.
func FillMat(m Mat, val float64) {
	for _, row := range m {
		FillVec(row, val)
	}
}

// FillVec sets every element of v to val.
func FillVec(v Vec, val float64) {
	for i := range v {
		v[i] = val
	}
}

// ColSum returns the sum of column j.
func ColSum(m Mat, j int) float64 {
	sum := 0.0
	for i := range m {
		sum += m[i][j]
	}
	return sum
}

package evals

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// solveAssignment finds the pairing of rows to columns that maximizes the
// sum of the selected cells of a square score matrix. It runs the Hungarian
// algorithm with row/column potentials in O(n³); the matrix is negated
// internally since the algorithm minimizes.
//
// The returned slice maps each row index to its assigned column.
func solveAssignment(scores *mat.Dense) []int {
	n, _ := scores.Dims()
	if n == 0 {
		return nil
	}

	// Potentials and matching use 1-based indexing with a virtual row and
	// column 0, per the standard formulation.
	u := make([]float64, n+1)
	v := make([]float64, n+1)
	rowOf := make([]int, n+1) // rowOf[j] = row matched to column j
	way := make([]int, n+1)

	for i := 1; i <= n; i++ {
		rowOf[0] = i
		j0 := 0
		minv := make([]float64, n+1)
		used := make([]bool, n+1)
		for j := range minv {
			minv[j] = math.Inf(1)
		}

		for {
			used[j0] = true
			i0 := rowOf[j0]
			delta := math.Inf(1)
			j1 := 0
			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				cur := -scores.At(i0-1, j-1) - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= n; j++ {
				if used[j] {
					u[rowOf[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if rowOf[j0] == 0 {
				break
			}
		}

		// Walk the augmenting path back, flipping the matching.
		for j0 != 0 {
			j1 := way[j0]
			rowOf[j0] = rowOf[j1]
			j0 = j1
		}
	}

	assignment := make([]int, n)
	for j := 1; j <= n; j++ {
		if rowOf[j] > 0 {
			assignment[rowOf[j]-1] = j - 1
		}
	}
	return assignment
}

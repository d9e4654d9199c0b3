package recognition

type MockEngine struct {
	PredictFunc func(input []float32, inputShape []int64, outputShapes [][]int64) ([][]float32, error)
	CloseFunc   func() error
}

func (m *MockEngine) Predict(input []float32, inputShape []int64, outputShapes [][]int64) ([][]float32, error) {
	if m.PredictFunc != nil {
		return m.PredictFunc(input, inputShape, outputShapes)
	}
	return nil, nil
}

func (m *MockEngine) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

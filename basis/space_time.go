package basis

import "fmt"

// SpaceTimeFaceMap names the local faces of a space-time element built over a
// spatial element: the face at the start of the slab, the face at the end of
// the slab, and the space-time face carrying each spatial local face.
type SpaceTimeFaceMap struct {
	Shape       Shape // shape of the space-time element
	InitialTime int
	FinalTime   int
	Spatial     []int
}

// NewSpaceTimeFaceMap returns the face map for slabs over the spatial shape.
// A segment extruded in time is a quadrilateral with s as time: face 0
// (s=-1) is the initial time, face 2 (s=1) the final time, spatial face 0
// (r=-1) is face 3 and spatial face 1 (r=1) is face 1.
func NewSpaceTimeFaceMap(spatial Shape) (fm SpaceTimeFaceMap, err error) {
	switch spatial {
	case Segment:
		fm = SpaceTimeFaceMap{
			Shape:       Quadrilateral,
			InitialTime: 0,
			FinalTime:   2,
			Spatial:     []int{3, 1},
		}
	default:
		err = fmt.Errorf("no space-time element over %s", spatial)
	}
	return
}

// TimeOnFace returns the reference time (-1..1) of each point of a
// space-time face rule after mapping it onto the space-time element.
func (fm SpaceTimeFaceMap) TimeOnFace(face int, facePts [][]float64) (tau []float64) {
	elemPts := fm.Shape.FaceToElemRef(face, facePts)
	tau = make([]float64, len(elemPts))
	for i, pt := range elemPts {
		tau[i] = pt[len(pt)-1]
	}
	return
}

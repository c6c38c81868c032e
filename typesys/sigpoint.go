// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package typesys

import "github.com/gogpu/dxil/shadermodel"

// SigPointKind identifies where in the pipeline a signature lives.
type SigPointKind uint8

const (
	SigPointVSIn SigPointKind = iota
	SigPointVSOut
	SigPointPCIn
	SigPointHSIn
	SigPointHSCPIn
	SigPointHSCPOut
	SigPointPCOut
	SigPointDSIn
	SigPointDSCPIn
	SigPointDSOut
	SigPointGSVIn
	SigPointGSIn
	SigPointGSOut
	SigPointPSIn
	SigPointPSOut
	SigPointCSIn
	SigPointInvalid
)

var sigPointNames = [...]string{
	"VSIn", "VSOut", "PCIn", "HSIn", "HSCPIn", "HSCPOut", "PCOut", "DSIn",
	"DSCPIn", "DSOut", "GSVIn", "GSIn", "GSOut", "PSIn", "PSOut", "CSIn", "Invalid",
}

// String returns the signature point name, such as "PSIn".
func (k SigPointKind) String() string {
	if int(k) < len(sigPointNames) {
		return sigPointNames[k]
	}
	return "Invalid"
}

// SigPointFromInputQual maps a parameter qualifier of a function of the given
// stage to its signature point. isPatchConstant selects the patch constant
// function of a hull shader. Combinations that have no signature point map
// to SigPointInvalid.
func SigPointFromInputQual(q InputQualifier, kind shadermodel.Kind, isPatchConstant bool) SigPointKind {
	switch kind {
	case shadermodel.KindVertex:
		switch q {
		case QualIn:
			return SigPointVSIn
		case QualOut:
			return SigPointVSOut
		}
	case shadermodel.KindHull:
		switch q {
		case QualIn:
			if isPatchConstant {
				return SigPointPCIn
			}
			// Control points arrive through InputPatch.
			return SigPointHSIn
		case QualOut:
			if isPatchConstant {
				return SigPointPCOut
			}
			return SigPointHSCPOut
		case QualInputPatch:
			return SigPointHSCPIn
		case QualOutputPatch:
			return SigPointHSCPOut
		}
	case shadermodel.KindDomain:
		switch q {
		case QualIn:
			return SigPointDSIn
		case QualOut:
			return SigPointDSOut
		case QualInputPatch, QualOutputPatch:
			return SigPointDSCPIn
		}
	case shadermodel.KindGeometry:
		switch q {
		case QualIn:
			return SigPointGSIn
		case QualInputPrimitive:
			return SigPointGSVIn
		case QualOutStream0, QualOutStream1, QualOutStream2, QualOutStream3:
			return SigPointGSOut
		}
	case shadermodel.KindPixel:
		switch q {
		case QualIn:
			return SigPointPSIn
		case QualOut:
			return SigPointPSOut
		}
	case shadermodel.KindCompute:
		if q == QualIn {
			return SigPointCSIn
		}
	}
	return SigPointInvalid
}

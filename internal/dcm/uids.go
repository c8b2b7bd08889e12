package dcm

// Well-known UIDs used by cephalogram records.
const (
	// DigitalXRayForProcessing is the SOP Class of DX images with
	// PresentationIntentType FOR PROCESSING.
	DigitalXRayForProcessing = "1.2.840.10008.5.1.4.1.1.1.1.1"

	// SpatialFiducialsStorage is the SOP Class of fiducial point sets.
	SpatialFiducialsStorage = "1.2.840.10008.5.1.4.1.1.66.2"

	// MediaStorageDirectoryStorage is the SOP Class of DICOMDIR files.
	MediaStorageDirectoryStorage = "1.2.840.10008.1.3.10"

	// JPEGBaseline is the transfer syntax for baseline lossy JPEG
	// (process 1). The dataset portion is encoded explicit VR little
	// endian with the compressed bitstream encapsulated in the pixel
	// data element.
	JPEGBaseline = "1.2.840.10008.1.2.4.50"

	// ExplicitVRLittleEndian is the uncompressed transfer syntax used
	// for DICOMDIR and fiducial records.
	ExplicitVRLittleEndian = "1.2.840.10008.1.2.1"

	// ImplementationClassUID identifies this implementation in file
	// meta headers.
	ImplementationClassUID = "1.2.826.0.1.3680043.10.1081"

	// ImplementationVersionName is written next to the class UID.
	ImplementationVersionName = "CEPH2DICOM_01"
)

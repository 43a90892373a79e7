package tiffmeta

import "strconv"

// TagImageDescription carries OME-XML in OME-TIFF files.
const TagImageDescription uint16 = 270

var tagNames = map[uint16]string{
	254:   "NewSubfileType",
	255:   "SubfileType",
	256:   "ImageWidth",
	257:   "ImageLength",
	258:   "BitsPerSample",
	259:   "Compression",
	262:   "PhotometricInterpretation",
	263:   "Thresholding",
	264:   "CellWidth",
	265:   "CellLength",
	266:   "FillOrder",
	269:   "DocumentName",
	270:   "ImageDescription",
	271:   "Make",
	272:   "Model",
	273:   "StripOffsets",
	274:   "Orientation",
	277:   "SamplesPerPixel",
	278:   "RowsPerStrip",
	279:   "StripByteCounts",
	280:   "MinSampleValue",
	281:   "MaxSampleValue",
	282:   "XResolution",
	283:   "YResolution",
	284:   "PlanarConfiguration",
	285:   "PageName",
	286:   "XPosition",
	287:   "YPosition",
	288:   "FreeOffsets",
	289:   "FreeByteCounts",
	290:   "GrayResponseUnit",
	291:   "GrayResponseCurve",
	292:   "T4Options",
	293:   "T6Options",
	296:   "ResolutionUnit",
	297:   "PageNumber",
	301:   "TransferFunction",
	305:   "Software",
	306:   "DateTime",
	315:   "Artist",
	316:   "HostComputer",
	317:   "Predictor",
	318:   "WhitePoint",
	319:   "PrimaryChromaticities",
	320:   "ColorMap",
	321:   "HalftoneHints",
	322:   "TileWidth",
	323:   "TileLength",
	324:   "TileOffsets",
	325:   "TileByteCounts",
	330:   "SubIFDs",
	332:   "InkSet",
	333:   "InkNames",
	334:   "NumberOfInks",
	336:   "DotRange",
	337:   "TargetPrinter",
	338:   "ExtraSamples",
	339:   "SampleFormat",
	340:   "SMinSampleValue",
	341:   "SMaxSampleValue",
	342:   "TransferRange",
	347:   "JPEGTables",
	529:   "YCbCrCoefficients",
	530:   "YCbCrSubSampling",
	531:   "YCbCrPositioning",
	532:   "ReferenceBlackWhite",
	700:   "XMP",
	32781: "ImageID",
	32997: "ImageDepth",
	32998: "TileDepth",
	33432: "Copyright",
	33723: "IPTCNAA",
	34377: "ImageResources",
	34665: "ExifTag",
	34675: "InterColorProfile",
	34853: "GPSTag",
	37706: "TVIPS",
	50838: "IJMetadataByteCounts",
	50839: "IJMetadata",
	65000: "DimapDocumentXML",
}

// TagName returns the conventional name of a tag code, or its decimal
// code when the tag is not in the table.
func TagName(code uint16) string {
	if name, ok := tagNames[code]; ok {
		return name
	}
	return strconv.Itoa(int(code))
}
